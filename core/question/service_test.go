package question_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/question"
	inmemstore "github.com/DeathRaider12/HUB-TUTORIUM/storage/store/inmem"
)

var (
	student  = &account.Session{ID: "s1", Role: account.RoleStudent, Verified: true}
	student2 = &account.Session{ID: "s2", Role: account.RoleStudent, Verified: true}
	admin    = &account.Session{ID: "a1", Role: account.RoleAdmin, Privileged: true}
)

func TestMain(m *testing.M) {
	core.Conf = &core.Config{TestMode: true, AppName: "Tutorium"}
	os.Exit(m.Run())
}

func newService() *question.Service {
	return question.NewService(inmemstore.NewQuestionRepository(inmemstore.NewDB()))
}

func ask(t *testing.T, svc *question.Service, actor *account.Session, title string) question.Question {
	t.Helper()
	q, err := svc.Ask(context.Background(), actor, question.NewQuestion{Title: title, Body: "How?"})
	if err != nil {
		t.Fatalf("Ask() failed: %v", err)
	}
	return q
}

func TestServiceAskAndQuery(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	q := ask(t, svc, student, "Pointers?")
	if q.Status != question.StatusOpen || q.AuthorID != student.ID {
		t.Errorf("question = %+v, want open question by %s", q, student.ID)
	}
	time.Sleep(time.Millisecond)
	ask(t, svc, student2, "Slices?")

	questions, err := svc.QueryAll(ctx)
	if err != nil {
		t.Fatalf("QueryAll() failed: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(questions))
	}
	// newest first
	if questions[0].Title != "Slices?" {
		t.Errorf("first title = %q, want newest", questions[0].Title)
	}
}

func TestServiceAnswer(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	q := ask(t, svc, student, "Pointers?")

	a, err := svc.Answer(ctx, student2, q.ID, question.NewAnswer{Body: "Like so."})
	if err != nil {
		t.Fatalf("Answer() failed: %v", err)
	}
	if a.QuestionID != q.ID || a.AuthorID != student2.ID {
		t.Errorf("answer = %+v, want answer to %s by %s", a, q.ID, student2.ID)
	}

	if _, err = svc.Answer(ctx, student2, "nope", question.NewAnswer{Body: "?"}); errors.Cause(err) != question.ErrNotFound {
		t.Errorf("Answer() error = %v, want %v", err, question.ErrNotFound)
	}

	_, answers, err := svc.Get(ctx, q.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if len(answers) != 1 {
		t.Errorf("answers = %d, want 1", len(answers))
	}
}

func TestServiceAccept(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	q := ask(t, svc, student, "Pointers?")
	a, err := svc.Answer(ctx, student2, q.ID, question.NewAnswer{Body: "Like so."})
	if err != nil {
		t.Fatalf("Answer() failed: %v", err)
	}

	// only the author or an admin may accept
	if _, err = svc.Accept(ctx, student2, q.ID, a.ID); errors.Cause(err) != account.ErrForbidden {
		t.Errorf("Accept() error = %v, want %v", err, account.ErrForbidden)
	}

	accepted, err := svc.Accept(ctx, student, q.ID, a.ID)
	if err != nil {
		t.Fatalf("Accept() failed: %v", err)
	}
	if !accepted.Accepted {
		t.Error("answer must be marked accepted")
	}

	got, _, err := svc.Get(ctx, q.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Status != question.StatusAnswered {
		t.Errorf("status = %q, want %q", got.Status, question.StatusAnswered)
	}

	// admins may accept on any question
	q2 := ask(t, svc, student, "Maps?")
	a2, err := svc.Answer(ctx, student2, q2.ID, question.NewAnswer{Body: "Yes."})
	if err != nil {
		t.Fatalf("Answer() failed: %v", err)
	}
	if _, err = svc.Accept(ctx, admin, q2.ID, a2.ID); err != nil {
		t.Errorf("Accept() failed for admin: %v", err)
	}

	// an answer from another question is rejected
	q3 := ask(t, svc, student, "Chans?")
	if _, err = svc.Accept(ctx, student, q3.ID, a.ID); errors.Cause(err) != question.ErrAnswerNotFound {
		t.Errorf("Accept() error = %v, want %v", err, question.ErrAnswerNotFound)
	}
}

func TestServiceAnswerClosedQuestion(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	repo := inmemstore.NewQuestionRepository(inmemstore.NewDB())
	svc = question.NewService(repo)

	q := ask(t, svc, student, "Pointers?")
	q.Status = question.StatusClosed
	if _, err := repo.UpdateQuestion(ctx, q); err != nil {
		t.Fatalf("UpdateQuestion() failed: %v", err)
	}

	if _, err := svc.Answer(ctx, student2, q.ID, question.NewAnswer{Body: "?"}); errors.Cause(err) != question.ErrClosed {
		t.Errorf("Answer() error = %v, want %v", err, question.ErrClosed)
	}
}
