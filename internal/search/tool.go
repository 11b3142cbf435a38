package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/BondCortex/consts"
	"github.com/dyike/BondCortex/models"
)

var ErrInvalidArguments = errors.New("invalid search_bonds arguments")

// ToolInfo describes search_bonds to the model. It is shared by every call
// and must not be modified.
var ToolInfo = &schema.ToolInfo{
	Name: consts.SearchBondsTool,
	Desc: "Search for bonds that match specific criteria",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"query": {
			Type:     schema.String,
			Desc:     "The search query to find relevant bonds",
			Required: true,
		},
	}),
}

type Arguments struct {
	Query string `json:"query"`
}

// ParseArguments decodes a tool-call payload. Only a JSON object with a
// non-empty string query and no other fields is accepted.
func ParseArguments(raw string) (*Arguments, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()

	var args struct {
		Query *string `json:"query"`
	}
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrInvalidArguments)
	}
	if args.Query == nil || strings.TrimSpace(*args.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidArguments)
	}
	return &Arguments{Query: *args.Query}, nil
}

// BondSearcher is the search capability behind the tool.
type BondSearcher interface {
	Search(ctx context.Context, query string, dataset *models.BondDataset) (string, error)
}

type bondSearchTool struct {
	searcher BondSearcher
	dataset  *models.BondDataset
}

// NewTool exposes a searcher over one dataset as an eino tool.
func NewTool(searcher BondSearcher, dataset *models.BondDataset) tool.InvokableTool {
	return &bondSearchTool{searcher: searcher, dataset: dataset}
}

func (t *bondSearchTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return ToolInfo, nil
}

func (t *bondSearchTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	args, err := ParseArguments(argumentsInJSON)
	if err != nil {
		return "", err
	}
	return t.searcher.Search(ctx, args.Query, t.dataset)
}
