package calls

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	GetLastStatus() int
	GetLastBody() []byte
	GetResponseField(field string) (any, error)
	GetCurrentCall() string
	SetCurrentCall(callID string)
}

// RegisterSteps registers call lifecycle step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &callSteps{tc: tc}

	ctx.Step(`^a call starts from "([^"]*)"$`, steps.callStartsFrom)
	ctx.Step(`^a call starts without a caller number$`, steps.callStartsAnonymous)
	ctx.Step(`^the assistant invokes "([^"]*)"$`, steps.invokeWithoutArgs)
	ctx.Step(`^the assistant invokes "([^"]*)" with:$`, steps.invokeWithTable)
	ctx.Step(`^the call ends with summary "([^"]*)"$`, steps.endCall)
	ctx.Step(`^the call is evaluated$`, steps.evaluate)
	ctx.Step(`^I read the call journal$`, steps.readJournal)

	ctx.Step(`^the greeting should mention "([^"]*)"$`, steps.greetingShouldMention)
	ctx.Step(`^the outcome should be "([^"]*)"$`, steps.outcomeShouldBe)
	ctx.Step(`^the session state should be "([^"]*)"$`, steps.stateShouldBe)
	ctx.Step(`^the message should contain "([^"]*)"$`, steps.messageShouldContain)
	ctx.Step(`^the "([^"]*)" evaluation should contain "([^"]*)"$`, steps.evaluationShouldContain)
	ctx.Step(`^the journal should hold (\d+) entries ending with "([^"]*)"$`, steps.journalShouldHold)
}

type callSteps struct {
	tc TestContext
}

func (s *callSteps) start(body map[string]string) error {
	if err := s.tc.POST("/v1/calls", body); err != nil {
		return err
	}
	if s.tc.GetLastStatus() != 201 {
		return fmt.Errorf("start call returned %d: %s", s.tc.GetLastStatus(), s.tc.GetLastBody())
	}
	callID, err := s.tc.GetResponseField("call_id")
	if err != nil {
		return err
	}
	s.tc.SetCurrentCall(fmt.Sprint(callID))
	return nil
}

func (s *callSteps) callStartsFrom(ctx context.Context, number string) error {
	return s.start(map[string]string{"caller_number": number})
}

func (s *callSteps) callStartsAnonymous(ctx context.Context) error {
	return s.start(map[string]string{})
}

func (s *callSteps) callPath(suffix string) string {
	return "/v1/calls/" + s.tc.GetCurrentCall() + suffix
}

func (s *callSteps) invokeWithoutArgs(ctx context.Context, action string) error {
	return s.tc.POST(s.callPath("/actions/"+action), map[string]any{})
}

// invokeWithTable reads a two-column | field | value | table. Values that
// parse as JSON numbers are sent as numbers.
func (s *callSteps) invokeWithTable(ctx context.Context, action string, table *godog.Table) error {
	args := make(map[string]any, len(table.Rows))
	for _, row := range table.Rows {
		if len(row.Cells) != 2 {
			return fmt.Errorf("expected two columns, got %d", len(row.Cells))
		}
		field, raw := row.Cells[0].Value, row.Cells[1].Value
		var n json.Number
		if err := json.Unmarshal([]byte(raw), &n); err == nil {
			args[field] = n
			continue
		}
		args[field] = raw
	}
	return s.tc.POST(s.callPath("/actions/"+action), args)
}

func (s *callSteps) endCall(ctx context.Context, summary string) error {
	if err := s.tc.POST(s.callPath("/end"), map[string]string{"resolution_summary": summary}); err != nil {
		return err
	}
	if s.tc.GetLastStatus() != 204 {
		return fmt.Errorf("end call returned %d: %s", s.tc.GetLastStatus(), s.tc.GetLastBody())
	}
	return nil
}

func (s *callSteps) evaluate(ctx context.Context) error {
	return s.tc.POST(s.callPath("/evaluate"), nil)
}

func (s *callSteps) readJournal(ctx context.Context) error {
	return s.tc.GET(s.callPath("/journal"))
}

func (s *callSteps) field(name string) (string, error) {
	v, err := s.tc.GetResponseField(name)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}

func (s *callSteps) greetingShouldMention(ctx context.Context, text string) error {
	return s.fieldContains("greeting", text)
}

func (s *callSteps) outcomeShouldBe(ctx context.Context, outcome string) error {
	got, err := s.field("outcome")
	if err != nil {
		return err
	}
	if got != outcome {
		return fmt.Errorf("expected outcome %q, got %q: %s", outcome, got, s.tc.GetLastBody())
	}
	return nil
}

func (s *callSteps) stateShouldBe(ctx context.Context, state string) error {
	got, err := s.field("state")
	if err != nil {
		return err
	}
	if got != state {
		return fmt.Errorf("expected state %q, got %q", state, got)
	}
	return nil
}

func (s *callSteps) messageShouldContain(ctx context.Context, text string) error {
	return s.fieldContains("message", text)
}

func (s *callSteps) evaluationShouldContain(ctx context.Context, which, text string) error {
	return s.fieldContains(which+"_evaluation", text)
}

func (s *callSteps) fieldContains(name, text string) error {
	got, err := s.field(name)
	if err != nil {
		return err
	}
	if !strings.Contains(got, text) {
		return fmt.Errorf("expected %s to contain %q, got %q", name, text, got)
	}
	return nil
}

func (s *callSteps) journalShouldHold(ctx context.Context, count int, lastKind string) error {
	var body struct {
		Entries []struct {
			Seq  int64  `json:"seq"`
			Kind string `json:"kind"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(s.tc.GetLastBody(), &body); err != nil {
		return fmt.Errorf("decode journal: %w", err)
	}
	if len(body.Entries) != count {
		return fmt.Errorf("expected %d entries, got %d", count, len(body.Entries))
	}
	for i, e := range body.Entries {
		if e.Seq != int64(i+1) {
			return fmt.Errorf("entry %d has seq %d", i, e.Seq)
		}
	}
	if got := body.Entries[count-1].Kind; got != lastKind {
		return fmt.Errorf("expected last entry %q, got %q", lastKind, got)
	}
	return nil
}
