package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/question"
)

type questionApi struct {
	svc         *question.Service
	identitySvc *identity.Service
	engine      *account.Engine
}

func registerQuestionAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *question.Service,
	identitySvc *identity.Service,
	engine *account.Engine,
) {
	api := questionApi{svc: svc, identitySvc: identitySvc, engine: engine}

	readGuard := guardMiddleware(identitySvc, engine, account.Authenticated())
	writeGuard := guardMiddleware(identitySvc, engine,
		account.Verified(account.RoleStudent, account.RoleLecturer, account.RoleAdmin))

	qg := g.Group("/questions", jwt)
	qg.GET("", api.query, readGuard)
	qg.GET("/:id", api.retrieve, readGuard)
	qg.POST("", api.ask, writeGuard)
	qg.POST("/:id/answers", api.answer, writeGuard)
	qg.PUT("/:id/answers/:aid/accept", api.accept, writeGuard)
}

// Handlers

func (api *questionApi) query(ctx echo.Context) error {
	questions, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}
	if questions == nil {
		questions = []question.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *questionApi) retrieve(ctx echo.Context) error {
	q, answers, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == question.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding question by ID")
	}
	if answers == nil {
		answers = []question.Answer{}
	}
	return ctx.JSON(http.StatusOK, QuestionDetailResponse{Question: q, Answers: answers})
}

func (api *questionApi) ask(ctx echo.Context) error {
	var data question.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	st, err := getContextState(ctx, api.identitySvc, api.engine)
	if err != nil {
		return errors.Wrap(err, "getting context state")
	}

	q, err := api.svc.Ask(ctx.Request().Context(), st.Session, data)
	if err != nil {
		return errors.Wrap(err, "creating question")
	}
	return ctx.JSON(http.StatusCreated, q)
}

func (api *questionApi) answer(ctx echo.Context) error {
	var data question.NewAnswer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnswer")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	st, err := getContextState(ctx, api.identitySvc, api.engine)
	if err != nil {
		return errors.Wrap(err, "getting context state")
	}

	ans, err := api.svc.Answer(ctx.Request().Context(), st.Session, ctx.Param("id"), data)
	if err != nil {
		switch errors.Cause(err) {
		case question.ErrNotFound:
			return errHttpNotFound
		case question.ErrClosed:
			return core.NewValidationError(errors.New("question is closed"))
		}
		return errors.Wrap(err, "creating answer")
	}
	return ctx.JSON(http.StatusCreated, ans)
}

func (api *questionApi) accept(ctx echo.Context) error {
	st, err := getContextState(ctx, api.identitySvc, api.engine)
	if err != nil {
		return errors.Wrap(err, "getting context state")
	}

	ans, err := api.svc.Accept(ctx.Request().Context(), st.Session, ctx.Param("id"), ctx.Param("aid"))
	if err != nil {
		switch errors.Cause(err) {
		case question.ErrNotFound, question.ErrAnswerNotFound:
			return errHttpNotFound
		case account.ErrForbidden:
			return errHttpForbidden
		}
		return errors.Wrap(err, "accepting answer")
	}
	return ctx.JSON(http.StatusOK, ans)
}

type QuestionDetailResponse struct {
	Question question.Question `json:"question"`
	Answers  []question.Answer `json:"answers"`
}
