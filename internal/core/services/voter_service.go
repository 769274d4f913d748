package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/ports"
)

type voterService struct {
	repo        ports.VoterRepository
	eligibility ports.EligibilityLedger
	bcryptCost  int
}

func NewVoterService(repo ports.VoterRepository, eligibility ports.EligibilityLedger, bcryptCost int) ports.VoterService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &voterService{
		repo:        repo,
		eligibility: eligibility,
		bcryptCost:  bcryptCost,
	}
}

func (s *voterService) Register(ctx context.Context, input ports.RegisterVoterInput) (*domain.Voter, error) {
	voter := &domain.Voter{
		ID:    strings.TrimSpace(input.StudentID),
		Name:  strings.TrimSpace(input.Name),
		Email: strings.ToLower(strings.TrimSpace(input.Email)),
		Role:  input.Role,
	}
	if voter.Role == "" {
		voter.Role = domain.RoleStudent
	}

	if voter.ID == "" {
		return nil, fmt.Errorf("%w: student id is required", domain.ErrInvalidVoter)
	}
	if voter.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidVoter)
	}
	if _, err := mail.ParseAddress(voter.Email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", domain.ErrInvalidVoter)
	}
	if !voter.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidVoter, voter.Role)
	}
	if input.Password == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrInvalidVoter)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidVoter, err)
	}
	voter.CredentialHash = string(hash)

	if err := s.repo.Create(ctx, voter); err != nil {
		if errors.Is(err, domain.ErrVoterExists) {
			return nil, err
		}
		return nil, storageErr("create voter", err)
	}
	return voter, nil
}

func (s *voterService) Get(ctx context.Context, id string) (*domain.Voter, error) {
	voter, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	voted, err := s.eligibility.VotedElections(ctx, voter.ID)
	if err != nil {
		return nil, storageErr("read voted elections", err)
	}
	voter.VotedElections = voted
	return voter, nil
}

func (s *voterService) List(ctx context.Context) ([]*domain.Voter, error) {
	voters, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, storageErr("list voters", err)
	}
	return voters, nil
}
