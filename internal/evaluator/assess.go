// Package evaluator scores a finished call from its journal and summary row:
// one note on identity-protocol adherence and one on how the call resolved.
package evaluator

import (
	"fmt"
	"strings"

	"voicedesk/internal/actions"
	"voicedesk/internal/calls"
	"voicedesk/internal/gate"
	"voicedesk/internal/journal"
)

const (
	noteConfirmed        = "Member identity was confirmed during the call."
	noteConfirmFailed    = "An identity confirmation was attempted but did not succeed."
	noteNeverConfirmed   = "ALERT: no explicit identity confirmation was found for the call."
	notePositive         = "Positive resolution indicator (a key action succeeded)."
	noteUndetermined     = "Call resolution undetermined (no key action and no system error)."
	noteProbablyNegative = "Call resolution probably negative because of system errors."
)

func isConfirmation(op string) bool {
	return op == actions.ConfirmIdentity || op == actions.ConfirmVerbal
}

// Assess derives the evaluation from a finished call. It reads outcome tags,
// never result text, and is deterministic for a given input.
//
// The protocol-violation check looks at the final confirmation state only: a
// call that confirmed, cleared and then mutated again is reported as
// confirmed.
func Assess(summary calls.Summary, entries []journal.Entry, errorCount int) calls.Evaluation {
	confirmedByAction, attempted := false, false
	for _, e := range entries {
		if !isConfirmation(e.Operation) {
			continue
		}
		switch e.Kind {
		case journal.KindToolCall:
			attempted = true
		case journal.KindToolResult:
			attempted = true
			if e.Outcome == journal.OutcomeSucceeded {
				confirmedByAction = true
			}
		}
	}
	confirmed := summary.ResolvedSubjectID != nil || confirmedByAction

	var prompt []string
	switch {
	case confirmed:
		prompt = append(prompt, noteConfirmed)
	case attempted:
		prompt = append(prompt, noteConfirmFailed)
	default:
		prompt = append(prompt, noteNeverConfirmed)
	}
	if !confirmed {
		for _, e := range entries {
			if e.Kind == journal.KindToolCall && gate.IsMutating(e.Operation) {
				prompt = append(prompt, fmt.Sprintf(
					"ALERT: mutating action '%s' was invoked without a confirmed identity (based on the final state).", e.Operation))
				break
			}
		}
	}

	var resolution []string
	keySucceeded := false
	for _, e := range entries {
		if e.Kind != journal.KindToolResult || !gate.IsKey(e.Operation) {
			continue
		}
		if e.Outcome == journal.OutcomeSucceeded {
			keySucceeded = true
			resolution = append(resolution, fmt.Sprintf("Key action '%s' completed successfully.", e.Operation))
			break
		}
		resolution = append(resolution, fmt.Sprintf("Key action '%s' failed (%s).", e.Operation, e.Outcome))
	}
	if errorCount > 0 {
		resolution = append(resolution, fmt.Sprintf("%d system error(s) recorded during the call.", errorCount))
	}

	switch {
	case keySucceeded:
		resolution = append([]string{notePositive}, resolution...)
	case len(resolution) == 0:
		resolution = append(resolution, noteUndetermined)
	case errorCount > 0 && len(resolution) == 1:
		resolution = append(resolution, noteProbablyNegative)
	}

	return calls.Evaluation{
		PromptEvaluation:     strings.Join(prompt, " "),
		ResolutionEvaluation: strings.Join(resolution, " "),
	}
}
