package e2e

import (
	"github.com/cucumber/godog"

	"cinematch/e2e/steps/common"
	"cinematch/e2e/steps/voting"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (background seeding, generic assertions)
	common.RegisterSteps(ctx, tc)

	// Register vote/match/subscription steps
	voting.RegisterSteps(ctx, tc)
}
