package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/question"
)

var errUnverified = map[string]string{
	"code":  "email_unverified",
	"error": "email address not verified",
}

func TestQuestionGuards(t *testing.T) {
	app := setup(t)
	_, unverifiedToken := app.signupUser(t, "unverified@test.test", false)
	_, pendingToken := app.signupUser(t, "pending@test.test", true)

	body := marchallObj(t, question.NewQuestion{Title: "Q", Body: "B"})
	tests := []httpTest{
		{
			name:   "no token",
			method: http.MethodGet, path: "/v1/questions",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:   "unverified may read",
			method: http.MethodGet, path: "/v1/questions", token: unverifiedToken,
			wantCode: http.StatusOK,
		},
		{
			name:   "unverified may not write",
			method: http.MethodPost, path: "/v1/questions", body: body, token: unverifiedToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errUnverified),
		},
		{
			name:   "verified but pending may not write",
			method: http.MethodPost, path: "/v1/questions", body: body, token: pendingToken,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestQuestionLifecycle(t *testing.T) {
	app := setup(t)
	asker, askerToken := app.signupUser(t, "asker@test.test", true)
	helper, helperToken := app.signupUser(t, "helper@test.test", true)
	app.approve(t, asker.ID, account.RoleStudent)
	app.approve(t, helper.ID, account.RoleLecturer)

	// ask
	req, rec := newAuthRequest(http.MethodPost, "/v1/questions", askerToken,
		marchallObj(t, question.NewQuestion{Title: "What is a monad?", Body: "Asking for a friend.", Tags: []string{"fp"}}))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("ask: code = %v body = %s", rec.Code, rec.Body.String())
	}
	var q question.Question
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("unmarshaling question: %v", err)
	}
	if q.AuthorID != asker.ID || q.Status != question.StatusOpen {
		t.Errorf("question = %+v, want open question by %s", q, asker.ID)
	}

	// missing title fails validation
	req, rec = newAuthRequest(http.MethodPost, "/v1/questions", askerToken,
		marchallObj(t, question.NewQuestion{Body: "no title"}))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ask without title: code = %v, want 400", rec.Code)
	}

	// answer
	req, rec = newAuthRequest(http.MethodPost, "/v1/questions/"+q.ID+"/answers", helperToken,
		marchallObj(t, question.NewAnswer{Body: "It is a monoid in the category of endofunctors."}))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("answer: code = %v body = %s", rec.Code, rec.Body.String())
	}
	var ans question.Answer
	if err := json.Unmarshal(rec.Body.Bytes(), &ans); err != nil {
		t.Fatalf("unmarshaling answer: %v", err)
	}

	// only the author accepts
	req, rec = newAuthRequest(http.MethodPut, "/v1/questions/"+q.ID+"/answers/"+ans.ID+"/accept", helperToken)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusForbidden,
		wantData: marchallObj(t, httpErr{Error: "permission denied"}),
	}, rec)

	req, rec = newAuthRequest(http.MethodPut, "/v1/questions/"+q.ID+"/answers/"+ans.ID+"/accept", askerToken)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: code = %v body = %s", rec.Code, rec.Body.String())
	}

	// detail reflects the accepted answer and the closed status
	req, rec = newAuthRequest(http.MethodGet, "/v1/questions/"+q.ID, askerToken)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("retrieve: code = %v body = %s", rec.Code, rec.Body.String())
	}
	var detail QuestionDetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("unmarshaling detail: %v", err)
	}
	if detail.Question.Status != question.StatusAnswered {
		t.Errorf("status = %q, want %q", detail.Question.Status, question.StatusAnswered)
	}
	if len(detail.Answers) != 1 || !detail.Answers[0].Accepted {
		t.Errorf("answers = %+v, want one accepted answer", detail.Answers)
	}

	// an answered question still takes answers; only closed ones do not
	req, rec = newAuthRequest(http.MethodPost, "/v1/questions/"+q.ID+"/answers", helperToken,
		marchallObj(t, question.NewAnswer{Body: "another take"}))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("answer after accept: code = %v, want 201", rec.Code)
	}

	// ghost question
	req, rec = newAuthRequest(http.MethodGet, "/v1/questions/nope", askerToken)
	app.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: "not found"}),
	}, rec)
}
