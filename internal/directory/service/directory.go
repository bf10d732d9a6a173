package service

import (
	"context"
	"errors"
	"time"

	directoryerrors "expertly/internal/directory/errors"
	"expertly/internal/directory/repository"
	"expertly/pkg/config"
	apperrors "expertly/pkg/errors"
	"expertly/pkg/model"
)

// DirectoryService is the read side of the expert and user profiles used by booking.
type DirectoryService interface {
	GetExpert(ctx context.Context, id string) (*model.Expert, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	// ExpertLocation resolves the expert's time zone, UTC when unset.
	ExpertLocation(expert *model.Expert) *time.Location
	Contact(ctx context.Context, kind model.PartyKind, id string) (model.Contact, error)
	Preload(ctx context.Context, appointments []*model.Appointment, viewer model.PartyKind) error
	UpdateRate(ctx context.Context, kind model.PartyKind, id string, rate float64) error
}

type directoryService struct {
	repo repository.DirectoryRepository
	cfg  *config.Config
}

func NewDirectoryService(repo repository.DirectoryRepository, cfg *config.Config) DirectoryService {
	return &directoryService{repo: repo, cfg: cfg}
}

func (s *directoryService) GetExpert(ctx context.Context, id string) (*model.Expert, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Expert ID cannot be empty")
	}
	expert, err := s.repo.FindExpert(ctx, id)
	if err != nil {
		return nil, s.mapError(err, "Expert", id)
	}
	if expert.SessionDurationMin <= 0 {
		expert.SessionDurationMin = s.cfg.DefaultSessionDurationMin
	}
	return expert, nil
}

func (s *directoryService) GetUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("User ID cannot be empty")
	}
	user, err := s.repo.FindUser(ctx, id)
	if err != nil {
		return nil, s.mapError(err, "User", id)
	}
	return user, nil
}

func (s *directoryService) ExpertLocation(expert *model.Expert) *time.Location {
	if expert == nil || expert.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(expert.TimeZone)
	if err != nil {
		s.cfg.Log.Warn("Expert has an unknown time zone, falling back to UTC",
			"expert_id", expert.ID,
			"time_zone", expert.TimeZone,
		)
		return time.UTC
	}
	return loc
}

func (s *directoryService) Contact(ctx context.Context, kind model.PartyKind, id string) (model.Contact, error) {
	switch kind {
	case model.PartyExpert:
		expert, err := s.GetExpert(ctx, id)
		if err != nil {
			return model.Contact{}, err
		}
		return model.Contact{Kind: kind, ID: expert.ID, Name: expert.UserName, Email: expert.Email, PushToken: expert.PushToken}, nil
	case model.PartyUser:
		user, err := s.GetUser(ctx, id)
		if err != nil {
			return model.Contact{}, err
		}
		return model.Contact{Kind: kind, ID: user.ID, Name: user.UserName, Email: user.Email, PushToken: user.PushToken}, nil
	}
	return model.Contact{}, apperrors.InvalidInput("Unknown party kind: " + string(kind))
}

// Preload attaches the counterpart of viewer to every appointment.
func (s *directoryService) Preload(ctx context.Context, appointments []*model.Appointment, viewer model.PartyKind) error {
	if len(appointments) == 0 {
		return nil
	}

	ids := make([]string, 0, len(appointments))
	seen := make(map[string]bool, len(appointments))
	for _, a := range appointments {
		id := a.ExpertID
		if viewer == model.PartyExpert {
			id = a.UserID
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if viewer == model.PartyExpert {
		users, err := s.repo.FindUsers(ctx, ids)
		if err != nil {
			s.cfg.Log.Error("Failed to preload users", "count", len(ids), "error", err)
			return apperrors.Internal("Failed to load appointment users", err)
		}
		for _, a := range appointments {
			a.User = users[a.UserID]
		}
		return nil
	}

	experts, err := s.repo.FindExperts(ctx, ids)
	if err != nil {
		s.cfg.Log.Error("Failed to preload experts", "count", len(ids), "error", err)
		return apperrors.Internal("Failed to load appointment experts", err)
	}
	for _, a := range appointments {
		a.Expert = experts[a.ExpertID]
	}
	return nil
}

func (s *directoryService) UpdateRate(ctx context.Context, kind model.PartyKind, id string, rate float64) error {
	if err := s.repo.UpdateRate(ctx, kind, id, rate); err != nil {
		s.cfg.Log.Error("Failed to update party rate", "kind", kind, "id", id, "error", err)
		return s.mapError(err, string(kind), id)
	}
	return nil
}

func (s *directoryService) mapError(err error, resource, id string) error {
	if errors.Is(err, directoryerrors.ErrNotFound) {
		return apperrors.NotFoundWithID(resource, id)
	}
	if errors.Is(err, directoryerrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid " + resource + " ID format")
	}
	s.cfg.Log.Error("Directory lookup failed", "resource", resource, "id", id, "error", err)
	return apperrors.Internal("Failed to retrieve "+resource, err)
}
