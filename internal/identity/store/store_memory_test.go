package store

import (
	"context"
	"testing"

	"voicedesk/internal/identity"
	id "voicedesk/pkg/domain"
	"voicedesk/pkg/platform/sentinel"

	"github.com/stretchr/testify/suite"
)

type MemoryDirectorySuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestMemoryDirectorySuite(t *testing.T) {
	suite.Run(t, new(MemoryDirectorySuite))
}

func (s *MemoryDirectorySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = New(9)
	s.store.Seed(
		identity.Subject{ID: 1, Surname: "Martin", GivenName: "Claire", Phone: "+33 6 12 34 56 78", Email: "claire.martin@example.com"},
		identity.Subject{ID: 2, Surname: "Durand", GivenName: "Paul", Phone: "0698765432", Email: "shared@example.com"},
		identity.Subject{ID: 3, Surname: "Durand", GivenName: "Paul", Phone: "0611111111", Email: "shared@example.com"},
	)
}

func (s *MemoryDirectorySuite) TestFindByPhone() {
	s.Run("national format matches international record", func() {
		got, err := s.store.FindByPhone(s.ctx, "06 12 34 56 78")
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(id.SubjectID(1), got[0].ID)
	})

	s.Run("number shorter than the suffix length matches the tail", func() {
		got, err := s.store.FindByPhone(s.ctx, "12345678")
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Equal(id.SubjectID(1), got[0].ID)
	})

	s.Run("no digits yields no match", func() {
		got, err := s.store.FindByPhone(s.ctx, "anonymous")
		s.Require().NoError(err)
		s.Empty(got)
	})
}

func (s *MemoryDirectorySuite) TestFindByContractNumber() {
	s.store.LinkContract("CTR-2019-0020", 3)
	s.store.LinkContract("CTR-2020-0099", 42)

	got, err := s.store.FindByContractNumber(s.ctx, " ctr-2019-0020 ")
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(id.SubjectID(3), got[0].ID)

	got, err = s.store.FindByContractNumber(s.ctx, "CTR-2020-0099")
	s.Require().NoError(err)
	s.Empty(got, "holder missing from the directory")

	got, err = s.store.FindByContractNumber(s.ctx, "CTR-0000-0000")
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *MemoryDirectorySuite) TestFindByEmailIsCaseInsensitive() {
	got, err := s.store.FindByEmail(s.ctx, "CLAIRE.Martin@example.com ")
	s.Require().NoError(err)
	s.Require().Len(got, 1)

	shared, err := s.store.FindByEmail(s.ctx, "shared@example.com")
	s.Require().NoError(err)
	s.Len(shared, 2)
}

func (s *MemoryDirectorySuite) TestFindByFullNameReturnsHomonymsInOrder() {
	got, err := s.store.FindByFullName(s.ctx, "durand", "PAUL")
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(id.SubjectID(2), got[0].ID)
	s.Equal(id.SubjectID(3), got[1].ID)
}

func (s *MemoryDirectorySuite) TestFindByIDAndUpdateContact() {
	_, err := s.store.FindByID(s.ctx, 99)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	city := "Lyon"
	updated, err := s.store.UpdateContact(s.ctx, 1, identity.ContactUpdate{City: &city})
	s.Require().NoError(err)
	s.True(updated)

	subject, err := s.store.FindByID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("Lyon", subject.City)
	s.Equal("Martin", subject.Surname)

	updated, err = s.store.UpdateContact(s.ctx, 1, identity.ContactUpdate{})
	s.Require().NoError(err)
	s.False(updated)

	updated, err = s.store.UpdateContact(s.ctx, 99, identity.ContactUpdate{City: &city})
	s.Require().NoError(err)
	s.False(updated)
}
