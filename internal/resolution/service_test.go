package resolution

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Directory,SummaryWriter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"voicedesk/internal/identity"
	"voicedesk/internal/resolution/mocks"
	"voicedesk/internal/session"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
)

// =============================================================================
// Identity Resolution Test Suite
// =============================================================================
// Covers every transition of the state machine, including the refusal paths
// that must leave the session untouched.

type ResolutionSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	directory *mocks.MockDirectory
	summaries *mocks.MockSummaryWriter
	service   *Service
	ctx       context.Context
	callID    id.CallID
	jean      identity.Subject
	marie     identity.Subject
}

func TestResolutionSuite(t *testing.T) {
	suite.Run(t, new(ResolutionSuite))
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func (s *ResolutionSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.directory = mocks.NewMockDirectory(s.ctrl)
	s.summaries = mocks.NewMockSummaryWriter(s.ctrl)
	var err error
	s.service, err = New(s.directory, s.summaries, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	s.ctx = context.Background()
	s.callID = id.NewCallID()
	s.jean = identity.Subject{ID: 1, Surname: "Dupont", GivenName: "Jean", Phone: "0612345678", PostalCode: "69003", DateOfBirth: date(1970, 1, 15)}
	s.marie = identity.Subject{ID: 2, Surname: "Martin", GivenName: "Marie", PostalCode: "75010", DateOfBirth: date(1985, 3, 2)}
}

func (s *ResolutionSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ResolutionSuite) candidate(subject identity.Subject, via id.LookupKind) session.Session {
	return session.New(s.callID).WithCandidate(subject, via)
}

func (s *ResolutionSuite) confirmed(subject identity.Subject) session.Session {
	sess, err := s.candidate(subject, id.LookupByPhone).Confirm()
	s.Require().NoError(err)
	return sess
}

func (s *ResolutionSuite) TestNew() {
	s.Run("nil directory returns error", func() {
		_, err := New(nil, s.summaries)
		s.ErrorContains(err, "directory is required")
	})
	s.Run("nil summary writer returns error", func() {
		_, err := New(s.directory, nil)
		s.ErrorContains(err, "summary writer is required")
	})
}

func (s *ResolutionSuite) TestPhoneLookupThenVerbalConfirmation() {
	s.directory.EXPECT().FindByPhone(gomock.Any(), "+33612345678").Return([]identity.Subject{s.jean}, nil)
	s.summaries.EXPECT().SetResolvedSubject(gomock.Any(), s.callID, s.jean.ID).Return(nil)

	sess, msg, err := s.service.Lookup(s.ctx, session.New(s.callID), Criteria{Kind: id.LookupByPhone, Phone: "+33612345678"})
	s.Require().NoError(err)
	s.Equal(session.StateUnconfirmedCandidate, sess.State)
	s.Equal(s.jean.ID, sess.CandidateID())
	s.Equal("Am I speaking with Jean Dupont?", msg)

	sess, _, err = s.service.ConfirmVerbal(s.ctx, sess)
	s.Require().NoError(err)
	s.Equal(session.StateConfirmed, sess.State)
	s.Equal(s.jean.ID, sess.CandidateID())
}

func (s *ResolutionSuite) TestFullNameLookupThenTwoFactor() {
	s.Run("correct date of birth and postal code confirms", func() {
		s.directory.EXPECT().FindByFullName(gomock.Any(), "Martin", "Marie").Return([]identity.Subject{s.marie}, nil)
		s.summaries.EXPECT().SetResolvedSubject(gomock.Any(), s.callID, s.marie.ID).Return(nil)

		sess, msg, err := s.service.Lookup(s.ctx, session.New(s.callID), Criteria{Kind: id.LookupByFullName, Surname: "Martin", GivenName: "Marie"})
		s.Require().NoError(err)
		s.Contains(msg, "date of birth")
		s.Contains(msg, "postal code")

		sess, _, err = s.service.ConfirmTwoFactor(s.ctx, sess, "1985-03-02", "75010")
		s.Require().NoError(err)
		s.Equal(session.StateConfirmed, sess.State)
		s.Equal(s.marie.ID, sess.CandidateID())
	})

	s.Run("wrong date of birth drops the candidate", func() {
		sess, msg, err := s.service.ConfirmTwoFactor(s.ctx, s.candidate(s.marie, id.LookupByFullName), "1985-03-03", "75010")
		s.True(dErrors.HasCode(err, dErrors.CodeMismatch))
		s.Equal(session.StateNoCandidate, sess.State)
		s.NotContains(msg, "date")
		s.NotContains(msg, "postal")
	})

	s.Run("wrong postal code gives the same message", func() {
		_, byDate, _ := s.service.ConfirmTwoFactor(s.ctx, s.candidate(s.marie, id.LookupByFullName), "1985-03-03", "75010")
		sess, byPostal, err := s.service.ConfirmTwoFactor(s.ctx, s.candidate(s.marie, id.LookupByFullName), "1985-03-02", "75011")
		s.True(dErrors.HasCode(err, dErrors.CodeMismatch))
		s.Equal(session.StateNoCandidate, sess.State)
		s.Equal(byDate, byPostal)
	})

	s.Run("day-first date of birth is accepted", func() {
		s.summaries.EXPECT().SetResolvedSubject(gomock.Any(), s.callID, s.marie.ID).Return(nil)
		sess, _, err := s.service.ConfirmTwoFactor(s.ctx, s.candidate(s.marie, id.LookupByEmail), "02/03/1985", " 75010 ")
		s.Require().NoError(err)
		s.True(sess.IsConfirmed())
	})
}

func (s *ResolutionSuite) TestEmailLookupAmbiguous() {
	homonyms := []identity.Subject{
		{ID: 10, Surname: "Petit", GivenName: "Luc"},
		{ID: 11, Surname: "Petit", GivenName: "Lucie"},
		{ID: 12, Surname: "Petit", GivenName: "Lucas"},
		{ID: 13, Surname: "Petit", GivenName: "Lucien"},
	}

	s.Run("lists three names and leaves NoCandidate", func() {
		s.directory.EXPECT().FindByEmail(gomock.Any(), "famille@petit.fr").Return(homonyms[:3], nil)
		before := session.New(s.callID)
		sess, msg, err := s.service.Lookup(s.ctx, before, Criteria{Kind: id.LookupByEmail, Email: "famille@petit.fr"})
		s.True(dErrors.HasCode(err, dErrors.CodeAmbiguous))
		s.Equal(before, sess)
		s.Contains(msg, "Luc Petit, Lucie Petit, Lucas Petit")
		s.Contains(msg, "email address or your contract number")
	})

	s.Run("never lists more than three", func() {
		s.directory.EXPECT().FindByEmail(gomock.Any(), "famille@petit.fr").Return(homonyms, nil)
		_, msg, _ := s.service.Lookup(s.ctx, session.New(s.callID), Criteria{Kind: id.LookupByEmail, Email: "famille@petit.fr"})
		s.NotContains(msg, "Lucien")
	})

	s.Run("keeps an existing candidate", func() {
		s.directory.EXPECT().FindByEmail(gomock.Any(), "famille@petit.fr").Return(homonyms, nil)
		before := s.candidate(s.jean, id.LookupByPhone)
		sess, _, _ := s.service.Lookup(s.ctx, before, Criteria{Kind: id.LookupByEmail, Email: "famille@petit.fr"})
		s.Equal(before, sess)
	})
}

func (s *ResolutionSuite) TestContractNumberDisambiguatesThenTwoFactor() {
	s.directory.EXPECT().FindByContractNumber(gomock.Any(), "CTR-2019-0020").Return([]identity.Subject{s.marie}, nil)
	sess, msg, err := s.service.Lookup(s.ctx, session.New(s.callID), Criteria{Kind: id.LookupByContractNumber, ContractNumber: " CTR-2019-0020 "})
	s.Require().NoError(err)
	s.Equal(session.StateUnconfirmedCandidate, sess.State)
	s.Equal(id.LookupByContractNumber, sess.FoundVia)
	s.Contains(msg, "date of birth and your postal code")

	_, _, err = s.service.ConfirmVerbal(s.ctx, sess)
	s.True(dErrors.HasCode(err, dErrors.CodePrecondition))

	s.summaries.EXPECT().SetResolvedSubject(gomock.Any(), s.callID, s.marie.ID).Return(nil)
	sess, _, err = s.service.ConfirmTwoFactor(s.ctx, sess, "1985-03-02", "75010")
	s.Require().NoError(err)
	s.Equal(session.StateConfirmed, sess.State)
}

func (s *ResolutionSuite) TestLookupNoMatchResets() {
	s.directory.EXPECT().FindByEmail(gomock.Any(), "nobody@example.com").Return(nil, nil)
	sess, _, err := s.service.Lookup(s.ctx, s.candidate(s.jean, id.LookupByPhone), Criteria{Kind: id.LookupByEmail, Email: "nobody@example.com"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Equal(session.StateNoCandidate, sess.State)
}

func (s *ResolutionSuite) TestLookupRejectsMissingFields() {
	cases := []Criteria{
		{Kind: id.LookupByPhone, Phone: "  "},
		{Kind: id.LookupByEmail},
		{Kind: id.LookupByFullName, Surname: "Martin"},
		{Kind: id.LookupByContractNumber, ContractNumber: " "},
		{Kind: "passport"},
	}
	for _, c := range cases {
		before := session.New(s.callID)
		sess, msg, err := s.service.Lookup(s.ctx, before, c)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), "kind %q", c.Kind)
		s.NotEmpty(msg)
		s.Equal(before, sess)
	}
}

func (s *ResolutionSuite) TestLookupDirectoryFailure() {
	s.directory.EXPECT().FindByPhone(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))
	before := s.candidate(s.jean, id.LookupByPhone)
	sess, _, err := s.service.Lookup(s.ctx, before, Criteria{Kind: id.LookupByPhone, Phone: "0612345678"})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	s.Equal(before, sess)
}

func (s *ResolutionSuite) TestConfirmVerbal() {
	s.Run("refused for candidates not found by phone", func() {
		before := s.candidate(s.marie, id.LookupByFullName)
		sess, _, err := s.service.ConfirmVerbal(s.ctx, before)
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
		s.Equal(before, sess)
	})

	s.Run("refused without a candidate", func() {
		before := session.New(s.callID)
		sess, _, err := s.service.ConfirmVerbal(s.ctx, before)
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
		s.Equal(before, sess)
	})

	s.Run("summary write failure refuses the transition", func() {
		s.summaries.EXPECT().SetResolvedSubject(gomock.Any(), s.callID, s.jean.ID).Return(errors.New("timeout"))
		before := s.candidate(s.jean, id.LookupByPhone)
		sess, _, err := s.service.ConfirmVerbal(s.ctx, before)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.Equal(before, sess)
	})
}

func (s *ResolutionSuite) TestConfirmTwoFactorPreconditions() {
	s.Run("NoCandidate is refused and unchanged", func() {
		before := session.New(s.callID)
		sess, _, err := s.service.ConfirmTwoFactor(s.ctx, before, "1985-03-02", "75010")
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
		s.Equal(before, sess)
	})

	s.Run("Confirmed is refused and unchanged", func() {
		before := s.confirmed(s.jean)
		sess, _, err := s.service.ConfirmTwoFactor(s.ctx, before, "1970-01-15", "69003")
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
		s.Equal(before, sess)
	})

	s.Run("malformed date keeps the candidate", func() {
		before := s.candidate(s.marie, id.LookupByFullName)
		for _, raw := range []string{"", "yesterday", "1985-13-02", "1985/03/02"} {
			sess, _, err := s.service.ConfirmTwoFactor(s.ctx, before, raw, "75010")
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), raw)
			s.Equal(before, sess)
		}
	})

	s.Run("candidate without date of birth never matches", func() {
		subject := s.marie
		subject.DateOfBirth = nil
		sess, _, err := s.service.ConfirmTwoFactor(s.ctx, s.candidate(subject, id.LookupByEmail), "1985-03-02", "75010")
		s.True(dErrors.HasCode(err, dErrors.CodeMismatch))
		s.Equal(session.StateNoCandidate, sess.State)
	})
}

func (s *ResolutionSuite) TestClearAlwaysYieldsNoCandidate() {
	for _, before := range []session.Session{
		session.New(s.callID),
		s.candidate(s.jean, id.LookupByPhone),
		s.confirmed(s.jean),
	} {
		sess, msg, err := s.service.Clear(s.ctx, before)
		s.Require().NoError(err)
		s.NotEmpty(msg)
		s.Equal(session.New(s.callID), sess)
	}
}

func (s *ResolutionSuite) TestRefresh() {
	s.Run("re-reads the confirmed subject", func() {
		updated := s.jean
		updated.Email = "jean.dupont@new.fr"
		s.directory.EXPECT().FindByID(gomock.Any(), s.jean.ID).Return(&updated, nil)

		sess, err := s.service.Refresh(s.ctx, s.confirmed(s.jean))
		s.Require().NoError(err)
		s.Equal(session.StateConfirmed, sess.State)
		s.Equal("jean.dupont@new.fr", sess.Candidate.Email)
	})

	s.Run("unconfirmed sessions are untouched", func() {
		before := s.candidate(s.jean, id.LookupByPhone)
		sess, err := s.service.Refresh(s.ctx, before)
		s.Require().NoError(err)
		s.Equal(before, sess)
	})
}
