package voting

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GroupCode() string
	TokenFor(name string) (string, error)
	StrangerToken() (string, error)
	POST(path, token string, body any) error
	GET(path, token string) error
	ResponseField(field string) (any, error)
	Subscribe(name, token string) error
	SubscribeExpectingClose(token string) error
	NextEvent(name string) (map[string]any, error)
}

// RegisterSteps registers the vote, match, and subscription step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &votingSteps{tc: tc}

	ctx.Step(`^"([^"]*)" approves movie (\d+)$`, steps.approve)
	ctx.Step(`^"([^"]*)" rejects movie (\d+)$`, steps.reject)
	ctx.Step(`^a stranger approves movie (\d+)$`, steps.strangerApproves)
	ctx.Step(`^the response reports a match$`, steps.assertMatched)
	ctx.Step(`^the response reports no match$`, steps.assertNotMatched)
	ctx.Step(`^the group match history contains movie (\d+)$`, steps.assertHistoryContains)

	ctx.Step(`^"([^"]*)" is subscribed to the group feed$`, steps.subscribe)
	ctx.Step(`^"([^"]*)" receives a "([^"]*)" event for movie (\d+)$`, steps.assertEvent)
	ctx.Step(`^a stranger opens the group feed$`, steps.strangerSubscribes)
	ctx.Step(`^an anonymous client opens the group feed$`, steps.anonymousSubscribes)
}

type votingSteps struct {
	tc TestContext
}

func (s *votingSteps) vote(name string, movie int, decision string) error {
	token, err := s.tc.TokenFor(name)
	if err != nil {
		return err
	}
	return s.tc.POST("/api/groups/"+s.tc.GroupCode()+"/votes", token, map[string]any{
		"item_id":  movie,
		"decision": decision,
	})
}

func (s *votingSteps) approve(ctx context.Context, name string, movie int) error {
	return s.vote(name, movie, "approve")
}

func (s *votingSteps) reject(ctx context.Context, name string, movie int) error {
	return s.vote(name, movie, "reject")
}

func (s *votingSteps) strangerApproves(ctx context.Context, movie int) error {
	token, err := s.tc.StrangerToken()
	if err != nil {
		return err
	}
	return s.tc.POST("/api/groups/"+s.tc.GroupCode()+"/votes", token, map[string]any{
		"item_id":  movie,
		"decision": "approve",
	})
}

func (s *votingSteps) assertMatched(ctx context.Context) error {
	matched, err := s.tc.ResponseField("matched")
	if err != nil {
		return err
	}
	if matched != true {
		return fmt.Errorf("expected matched=true, got %v", matched)
	}
	return nil
}

func (s *votingSteps) assertNotMatched(ctx context.Context) error {
	matched, err := s.tc.ResponseField("matched")
	if err != nil {
		return err
	}
	if matched != false {
		return fmt.Errorf("expected matched=false, got %v", matched)
	}
	return nil
}

func (s *votingSteps) assertHistoryContains(ctx context.Context, movie int) error {
	token, err := s.tc.TokenFor("alice")
	if err != nil {
		return err
	}
	if err := s.tc.GET("/api/groups/"+s.tc.GroupCode()+"/matches", token); err != nil {
		return err
	}
	raw, err := s.tc.ResponseField("matches")
	if err != nil {
		return err
	}
	matches, ok := raw.([]any)
	if !ok {
		return fmt.Errorf("matches field is not a list: %T", raw)
	}
	for _, m := range matches {
		entry, ok := m.(map[string]any)
		if !ok {
			continue
		}
		if item, ok := entry["item"].(float64); ok && int(item) == movie {
			return nil
		}
	}
	return fmt.Errorf("movie %d not found in %d matches", movie, len(matches))
}

func (s *votingSteps) subscribe(ctx context.Context, name string) error {
	token, err := s.tc.TokenFor(name)
	if err != nil {
		return err
	}
	return s.tc.Subscribe(name, token)
}

func (s *votingSteps) strangerSubscribes(ctx context.Context) error {
	token, err := s.tc.StrangerToken()
	if err != nil {
		return err
	}
	return s.tc.SubscribeExpectingClose(token)
}

func (s *votingSteps) anonymousSubscribes(ctx context.Context) error {
	return s.tc.SubscribeExpectingClose("")
}

func (s *votingSteps) assertEvent(ctx context.Context, name, eventType string, movie int) error {
	event, err := s.tc.NextEvent(name)
	if err != nil {
		return err
	}
	if event["type"] != eventType {
		return fmt.Errorf("expected event type %q, got %v", eventType, event["type"])
	}
	if item, ok := event["item"].(float64); !ok || int(item) != movie {
		return fmt.Errorf("expected item %d, got %v", movie, event["item"])
	}
	return nil
}
