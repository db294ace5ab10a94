package question

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
)

var (
	ErrNotFound       = errors.New("question not found")
	ErrAnswerNotFound = errors.New("answer not found")
	ErrClosed         = errors.New("question is closed")
)

type (
	Repository interface {
		CreateQuestion(ctx context.Context, q Question) (Question, error)
		GetQuestionByID(ctx context.Context, id string) (Question, error)
		// QueryAllQuestions returns questions newest first.
		QueryAllQuestions(ctx context.Context) ([]Question, error)
		UpdateQuestion(ctx context.Context, q Question) (Question, error)
		CreateAnswer(ctx context.Context, a Answer) (Answer, error)
		GetAnswerByID(ctx context.Context, id string) (Answer, error)
		UpdateAnswer(ctx context.Context, a Answer) (Answer, error)
		QueryAnswersByQuestionID(ctx context.Context, qid string) ([]Answer, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Ask(ctx context.Context, actor *account.Session, nq NewQuestion) (Question, error) {
	now := time.Now().UTC()
	return svc.repo.CreateQuestion(ctx, Question{
		ID:        uuid.NewString(),
		AuthorID:  actor.ID,
		Title:     nq.Title,
		Body:      nq.Body,
		Tags:      nq.Tags,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) QueryAll(ctx context.Context) ([]Question, error) {
	return svc.repo.QueryAllQuestions(ctx)
}

func (svc *Service) Get(ctx context.Context, id string) (Question, []Answer, error) {
	q, err := svc.repo.GetQuestionByID(ctx, id)
	if err != nil {
		return Question{}, nil, err
	}
	answers, err := svc.repo.QueryAnswersByQuestionID(ctx, id)
	if err != nil {
		return Question{}, nil, err
	}
	return q, answers, nil
}

func (svc *Service) Answer(ctx context.Context, actor *account.Session, qid string, na NewAnswer) (Answer, error) {
	q, err := svc.repo.GetQuestionByID(ctx, qid)
	if err != nil {
		return Answer{}, err
	}
	if q.Status == StatusClosed {
		return Answer{}, ErrClosed
	}
	return svc.repo.CreateAnswer(ctx, Answer{
		ID:         uuid.NewString(),
		QuestionID: q.ID,
		AuthorID:   actor.ID,
		Body:       na.Body,
		CreatedAt:  time.Now().UTC(),
	})
}

// Accept marks an answer as accepted and the question as answered.
// Only the question's author or an admin may accept.
func (svc *Service) Accept(ctx context.Context, actor *account.Session, qid, aid string) (Answer, error) {
	q, err := svc.repo.GetQuestionByID(ctx, qid)
	if err != nil {
		return Answer{}, err
	}
	if q.AuthorID != actor.ID && !actor.IsAdmin() {
		return Answer{}, account.ErrForbidden
	}

	a, err := svc.repo.GetAnswerByID(ctx, aid)
	if err != nil {
		return Answer{}, err
	}
	if a.QuestionID != q.ID {
		return Answer{}, ErrAnswerNotFound
	}

	a.Accepted = true
	if a, err = svc.repo.UpdateAnswer(ctx, a); err != nil {
		return Answer{}, err
	}

	q.Status = StatusAnswered
	q.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateQuestion(ctx, q); err != nil {
		return Answer{}, err
	}
	return a, nil
}
