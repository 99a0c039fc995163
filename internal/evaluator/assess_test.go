package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"voicedesk/internal/actions"
	"voicedesk/internal/calls"
	"voicedesk/internal/gate"
	"voicedesk/internal/journal"
	id "voicedesk/pkg/domain"
)

func pair(op string, outcome journal.Outcome) []journal.Entry {
	return []journal.Entry{
		{Kind: journal.KindToolCall, Operation: op},
		{Kind: journal.KindToolResult, Operation: op, Outcome: outcome},
	}
}

func trace(pairs ...[]journal.Entry) []journal.Entry {
	out := []journal.Entry{{Kind: journal.KindCallStarted}}
	for _, p := range pairs {
		out = append(out, p...)
	}
	return append(out, journal.Entry{Kind: journal.KindCallEnded})
}

func TestAssess(t *testing.T) {
	resolved := id.SubjectID(7)

	tests := []struct {
		name           string
		summary        calls.Summary
		entries        []journal.Entry
		errorCount     int
		wantPrompt     string
		wantResolution string
	}{
		{
			name: "confirmed two factor and claim created",
			entries: trace(
				pair(actions.LookupByFullName, journal.OutcomeSucceeded),
				pair(actions.ConfirmIdentity, journal.OutcomeSucceeded),
				pair(gate.OpCreateClaim, journal.OutcomeSucceeded),
			),
			wantPrompt:     noteConfirmed,
			wantResolution: notePositive + " Key action 'create_claim' completed successfully.",
		},
		{
			name:           "summary is the source of truth for confirmation",
			summary:        calls.Summary{ResolvedSubjectID: &resolved},
			entries:        trace(pair(actions.ConfirmIdentity, journal.OutcomeMismatch)),
			wantPrompt:     noteConfirmed,
			wantResolution: noteUndetermined,
		},
		{
			name:           "verbal confirmation counts",
			entries:        trace(pair(actions.ConfirmVerbal, journal.OutcomeSucceeded)),
			wantPrompt:     noteConfirmed,
			wantResolution: noteUndetermined,
		},
		{
			name:           "failed confirmation attempt",
			entries:        trace(pair(actions.ConfirmIdentity, journal.OutcomeMismatch)),
			wantPrompt:     noteConfirmFailed,
			wantResolution: noteUndetermined,
		},
		{
			name:    "mutation attempted without confirmation",
			entries: trace(pair(gate.OpCreateClaim, journal.OutcomeNotConfirmed)),
			wantPrompt: noteNeverConfirmed +
				" ALERT: mutating action 'create_claim' was invoked without a confirmed identity (based on the final state).",
			wantResolution: "Key action 'create_claim' failed (not_confirmed).",
		},
		{
			name:           "read-only guarded action is not a violation",
			entries:        trace(pair(gate.OpListClaims, journal.OutcomeNotConfirmed)),
			wantPrompt:     noteNeverConfirmed,
			wantResolution: noteUndetermined,
		},
		{
			name:           "system errors without key action",
			entries:        trace(pair(actions.LookupByPhone, journal.OutcomeStoreError)),
			errorCount:     2,
			wantPrompt:     noteNeverConfirmed,
			wantResolution: "2 system error(s) recorded during the call. " + noteProbablyNegative,
		},
		{
			name: "failed then successful key action",
			entries: trace(
				pair(actions.ConfirmVerbal, journal.OutcomeSucceeded),
				pair(gate.OpUpdateContact, journal.OutcomeInvalidInput),
				pair(gate.OpUpdateContact, journal.OutcomeSucceeded),
			),
			errorCount: 1,
			wantPrompt: noteConfirmed,
			wantResolution: notePositive +
				" Key action 'update_contact_information' failed (invalid_input)." +
				" Key action 'update_contact_information' completed successfully." +
				" 1 system error(s) recorded during the call.",
		},
		{
			// only the final state is inspected: a mutation after a clear
			// in a call that confirmed earlier is not reported
			name: "confirm then clear then mutate is not flagged",
			entries: trace(
				pair(actions.ConfirmVerbal, journal.OutcomeSucceeded),
				pair(actions.ClearContext, journal.OutcomeSucceeded),
				pair(gate.OpCreateClaim, journal.OutcomeNotConfirmed),
			),
			wantPrompt:     noteConfirmed,
			wantResolution: "Key action 'create_claim' failed (not_confirmed).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assess(tt.summary, tt.entries, tt.errorCount)
			assert.Equal(t, tt.wantPrompt, got.PromptEvaluation)
			assert.Equal(t, tt.wantResolution, got.ResolutionEvaluation)
		})
	}
}

func TestAssessIsDeterministic(t *testing.T) {
	entries := trace(
		pair(actions.ConfirmIdentity, journal.OutcomeSucceeded),
		pair(gate.OpCreateClaim, journal.OutcomeSucceeded),
	)
	assert.Equal(t, Assess(calls.Summary{}, entries, 1), Assess(calls.Summary{}, entries, 1))
}
