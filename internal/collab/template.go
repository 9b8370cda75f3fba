package collab

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ChannelBaseline is the expected performance of a channel absent any
// personalization.
type ChannelBaseline struct {
	EngagementRate float64
	ConversionRate float64
}

// IndustryTemplate carries the externally supplied industry playbook used
// by the template fallback generator.
type IndustryTemplate struct {
	Industry           string
	PainPoints         []string
	Personas           []string
	DecisionCycleDays  int
	CommunicationStyle string
	ChannelBaselines   map[string]ChannelBaseline
}

// TemplateGenerator produces deterministic, template-based content from the
// industry playbook. It serves both as a standalone generator and as the
// fallback when an AI-backed generator fails.
type TemplateGenerator struct {
	tmpl IndustryTemplate
}

// Compile-time interface check.
var _ ContentGenerator = (*TemplateGenerator)(nil)

// NewTemplateGenerator creates a template generator for one industry.
func NewTemplateGenerator(tmpl IndustryTemplate) *TemplateGenerator {
	return &TemplateGenerator{tmpl: tmpl}
}

// Generate renders the objective through the industry template. It never
// fails; the returned content is flagged as fallback material for review.
func (g *TemplateGenerator) Generate(_ context.Context, req ContentRequest) (Content, error) {
	pain := "operational efficiency"
	if len(g.tmpl.PainPoints) > 0 {
		pain = strings.ReplaceAll(g.tmpl.PainPoints[0], "_", " ")
	}

	body := fmt.Sprintf("Addressing %s in the %s space: %s for account %s.",
		pain, g.tmpl.Industry, req.Objective, req.AccountID)

	fit := 0.5
	if base, ok := g.tmpl.ChannelBaselines[req.Channel]; ok {
		fit = base.EngagementRate
	}

	return Content{
		Body:       body,
		ChannelFit: fit,
		Fallback:   true,
	}, nil
}

// FallbackGenerator wraps a primary generator and falls back to the
// template generator on ErrGenerationFailed, flagging the result for
// review. Other errors pass through.
type FallbackGenerator struct {
	primary  ContentGenerator
	fallback *TemplateGenerator
}

var _ ContentGenerator = (*FallbackGenerator)(nil)

// NewFallbackGenerator wires a primary generator with a template fallback.
func NewFallbackGenerator(primary ContentGenerator, fallback *TemplateGenerator) *FallbackGenerator {
	return &FallbackGenerator{primary: primary, fallback: fallback}
}

// Generate tries the primary generator first.
func (g *FallbackGenerator) Generate(ctx context.Context, req ContentRequest) (Content, error) {
	content, err := g.primary.Generate(ctx, req)
	if err == nil {
		return content, nil
	}
	if errors.Is(err, ErrGenerationFailed) {
		return g.fallback.Generate(ctx, req)
	}
	return Content{}, err
}
