package question

import (
	"time"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
)

type Status string

const (
	StatusOpen     Status = "open"
	StatusAnswered Status = "answered"
	StatusClosed   Status = "closed"
)

type Question struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags,omitempty"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Answer struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	AuthorID   string    `json:"author_id"`
	Body       string    `json:"body"`
	Accepted   bool      `json:"accepted"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// NewQuestion contains information needed to ask a Question.
type NewQuestion struct {
	Title string   `json:"title" validate:"required,max=200"`
	Body  string   `json:"body" validate:"required"`
	Tags  []string `json:"tags" validate:"omitempty,max=5,dive,required,max=30"`
}

func (nq *NewQuestion) Validate() error {
	nq.Title = core.CleanString(nq.Title)
	nq.Body = core.CleanString(nq.Body)
	for i, tag := range nq.Tags {
		nq.Tags[i] = core.CleanString(tag, true /* lower */)
	}
	return core.Validate.Struct(nq)
}

// NewAnswer contains information needed to answer a Question.
type NewAnswer struct {
	Body string `json:"body" validate:"required"`
}

func (na *NewAnswer) Validate() error {
	na.Body = core.CleanString(na.Body)
	return core.Validate.Struct(na)
}
