package booking

import (
	"context"
	"fmt"
)

type Service interface {
	GetByID(ctx context.Context, id, requesterID string) (*Booking, error)
	ListForStudent(ctx context.Context, userID string, status string, page, pageSize int) ([]*Booking, int, error)
	ListForMentor(ctx context.Context, mentorID string, status string, page, pageSize int) ([]*Booking, int, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetByID(ctx context.Context, id, requesterID string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	if !b.IsParty(requesterID) {
		return nil, ErrNotParty
	}
	return b, nil
}

func (s *service) ListForStudent(ctx context.Context, userID string, status string, page, pageSize int) ([]*Booking, int, error) {
	return s.repo.List(ctx, Filter{
		UserID:   userID,
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	})
}

func (s *service) ListForMentor(ctx context.Context, mentorID string, status string, page, pageSize int) ([]*Booking, int, error) {
	return s.repo.List(ctx, Filter{
		MentorID: mentorID,
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	})
}
