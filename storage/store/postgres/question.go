package pgstore

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/question"
)

type questionRow struct {
	ID        string         `db:"id"`
	AuthorID  string         `db:"author_id"`
	Title     string         `db:"title"`
	Body      string         `db:"body"`
	Tags      pq.StringArray `db:"tags"`
	Status    string         `db:"status"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r questionRow) question() question.Question {
	return question.Question{
		ID:        r.ID,
		AuthorID:  r.AuthorID,
		Title:     r.Title,
		Body:      r.Body,
		Tags:      r.Tags,
		Status:    question.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type answerRow struct {
	ID         string    `db:"id"`
	QuestionID string    `db:"question_id"`
	AuthorID   string    `db:"author_id"`
	Body       string    `db:"body"`
	Accepted   bool      `db:"accepted"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r answerRow) answer() question.Answer {
	return question.Answer{
		ID:         r.ID,
		QuestionID: r.QuestionID,
		AuthorID:   r.AuthorID,
		Body:       r.Body,
		Accepted:   r.Accepted,
		CreatedAt:  r.CreatedAt,
	}
}

type questionRepository struct {
	db *sqlx.DB
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *sqlx.DB) question.Repository {
	return &questionRepository{db: db}
}

func (repo *questionRepository) CreateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	var row questionRow
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO questions (id, author_id, title, body, tags, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *`,
		q.ID, q.AuthorID, q.Title, q.Body, pq.StringArray(q.Tags), string(q.Status), q.CreatedAt.UTC(), q.UpdatedAt.UTC(),
	).StructScan(&row)
	if err != nil {
		return question.Question{}, errors.Wrap(err, "creating question")
	}
	return row.question(), nil
}

func (repo *questionRepository) GetQuestionByID(ctx context.Context, id string) (question.Question, error) {
	var row questionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM questions WHERE id = $1`, id); err != nil {
		return question.Question{}, trapNoRowsErr(err, question.ErrNotFound, "getting question")
	}
	return row.question(), nil
}

func (repo *questionRepository) QueryAllQuestions(ctx context.Context) ([]question.Question, error) {
	var rows []questionRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM questions ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	qs := make([]question.Question, 0, len(rows))
	for _, row := range rows {
		qs = append(qs, row.question())
	}
	return qs, nil
}

func (repo *questionRepository) UpdateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	var row questionRow
	err := repo.db.QueryRowxContext(ctx, `
		UPDATE questions SET title = $2, body = $3, tags = $4, status = $5, updated_at = $6
		WHERE id = $1
		RETURNING *`,
		q.ID, q.Title, q.Body, pq.StringArray(q.Tags), string(q.Status), q.UpdatedAt.UTC(),
	).StructScan(&row)
	if err != nil {
		return question.Question{}, trapNoRowsErr(err, question.ErrNotFound, "updating question")
	}
	return row.question(), nil
}

func (repo *questionRepository) CreateAnswer(ctx context.Context, a question.Answer) (question.Answer, error) {
	var row answerRow
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO answers (id, question_id, author_id, body, accepted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *`,
		a.ID, a.QuestionID, a.AuthorID, a.Body, a.Accepted, a.CreatedAt.UTC(),
	).StructScan(&row)
	if err != nil {
		return question.Answer{}, errors.Wrap(err, "creating answer")
	}
	return row.answer(), nil
}

func (repo *questionRepository) GetAnswerByID(ctx context.Context, id string) (question.Answer, error) {
	var row answerRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM answers WHERE id = $1`, id); err != nil {
		return question.Answer{}, trapNoRowsErr(err, question.ErrAnswerNotFound, "getting answer")
	}
	return row.answer(), nil
}

func (repo *questionRepository) UpdateAnswer(ctx context.Context, a question.Answer) (question.Answer, error) {
	var row answerRow
	err := repo.db.QueryRowxContext(ctx, `
		UPDATE answers SET body = $2, accepted = $3 WHERE id = $1
		RETURNING *`,
		a.ID, a.Body, a.Accepted,
	).StructScan(&row)
	if err != nil {
		return question.Answer{}, trapNoRowsErr(err, question.ErrAnswerNotFound, "updating answer")
	}
	return row.answer(), nil
}

func (repo *questionRepository) QueryAnswersByQuestionID(ctx context.Context, qid string) ([]question.Answer, error) {
	var rows []answerRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM answers WHERE question_id = $1 ORDER BY created_at`, qid); err != nil {
		return nil, errors.Wrap(err, "querying answers")
	}
	answers := make([]question.Answer, 0, len(rows))
	for _, row := range rows {
		answers = append(answers, row.answer())
	}
	return answers, nil
}
