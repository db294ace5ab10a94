package inmemstore

import (
	"context"
	"sort"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/question"
)

type questionRepository struct {
	db *questionTable
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *DB) question.Repository {
	return &questionRepository{db: db.questions}
}

func (repo *questionRepository) CreateQuestion(_ context.Context, q question.Question) (question.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *questionRepository) GetQuestionByID(_ context.Context, id string) (question.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if q, ok := repo.db.questions[id]; ok {
		return *q, nil
	}
	return question.Question{}, question.ErrNotFound
}

func (repo *questionRepository) QueryAllQuestions(_ context.Context) ([]question.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	qs := make([]question.Question, 0, len(repo.db.questions))
	for _, q := range repo.db.questions {
		qs = append(qs, *q)
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].CreatedAt.After(qs[j].CreatedAt) })
	return qs, nil
}

func (repo *questionRepository) UpdateQuestion(_ context.Context, q question.Question) (question.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.questions[q.ID]; !ok {
		return question.Question{}, question.ErrNotFound
	}
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *questionRepository) CreateAnswer(_ context.Context, a question.Answer) (question.Answer, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.answers[a.ID] = &a
	return a, nil
}

func (repo *questionRepository) GetAnswerByID(_ context.Context, id string) (question.Answer, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.answers[id]; ok {
		return *a, nil
	}
	return question.Answer{}, question.ErrAnswerNotFound
}

func (repo *questionRepository) UpdateAnswer(_ context.Context, a question.Answer) (question.Answer, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.answers[a.ID]; !ok {
		return question.Answer{}, question.ErrAnswerNotFound
	}
	repo.db.answers[a.ID] = &a
	return a, nil
}

func (repo *questionRepository) QueryAnswersByQuestionID(_ context.Context, qid string) ([]question.Answer, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	answers := make([]question.Answer, 0)
	for _, a := range repo.db.answers {
		if a.QuestionID == qid {
			answers = append(answers, *a)
		}
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].CreatedAt.Before(answers[j].CreatedAt) })
	return answers, nil
}
