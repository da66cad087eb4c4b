package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	SeedGroup(code string, names []string) error
	LastStatus() int
	LastCloseCode() int
}

// RegisterSteps registers the background and generic assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^a group "([^"]*)" with members "([^"]*)" and "([^"]*)"$`, steps.seedGroup)
	ctx.Step(`^the request is rejected with status (\d+)$`, steps.assertStatus)
	ctx.Step(`^the connection is closed with code (\d+)$`, steps.assertCloseCode)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) seedGroup(ctx context.Context, code, first, second string) error {
	return s.tc.SeedGroup(code, []string{strings.TrimSpace(first), strings.TrimSpace(second)})
}

func (s *commonSteps) assertStatus(ctx context.Context, expected int) error {
	if s.tc.LastStatus() != expected {
		return fmt.Errorf("expected status %d, got %d", expected, s.tc.LastStatus())
	}
	return nil
}

func (s *commonSteps) assertCloseCode(ctx context.Context, expected int) error {
	if s.tc.LastCloseCode() != expected {
		return fmt.Errorf("expected close code %d, got %d", expected, s.tc.LastCloseCode())
	}
	return nil
}
