package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/dyike/BondCortex/internal/portfolio"
	"github.com/dyike/BondCortex/models"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleBonds lists the dataset the advisor searches.
func (s *Server) handleBonds(c *fiber.Ctx) error {
	b := s.backend.Load()
	return c.JSON(models.BondsResponse{
		Count: b.dataset.Len(),
		Bonds: b.dataset.Records(),
	})
}

// handleChat runs the advisor over the posted conversation.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "invalid request body"})
	}
	if len(req.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: "no messages provided"})
	}

	history, err := portfolio.History(req.Messages)
	if err != nil {
		var invalid *portfolio.InvalidMessageError
		if errors.As(err, &invalid) {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: err.Error()})
	}

	ctx := c.UserContext()
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	b := s.backend.Load()
	result, err := b.advisor.Run(ctx, history, b.dataset)
	if err != nil {
		s.logger.Error("advisor run failed",
			zap.String("path", c.Path()),
			zap.Int("messages", len(history)),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Error: err.Error()})
	}

	resp := models.ChatResponse{Message: result.Recommendation}
	if req.IncludeTranscript {
		resp.Transcript = portfolio.Transcript(result.Transcript)
	}
	return c.JSON(resp)
}
