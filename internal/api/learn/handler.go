package learn

import (
	"errors"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/internal/api/common"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/access"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/curriculum"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/mastery"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/planner"
	"github.com/efezeyus/aiogretmen-sub001/pkg/apperror"
	"github.com/efezeyus/aiogretmen-sub001/pkg/apperror/status"

	"github.com/gofiber/fiber/v3"
)

type Handler struct {
	guard   *access.Guard
	mastery *mastery.Service
	graph   *curriculum.Graph
}

func NewHandler(guard *access.Guard, masterySvc *mastery.Service, graph *curriculum.Graph) *Handler {
	return &Handler{guard: guard, mastery: masterySvc, graph: graph}
}

func (h *Handler) plannerOptions() planner.Options {
	return planner.Options{
		UpcomingTopics: config.Cfg.Planner.UpcomingTopics,
		PaceFactor:     config.Cfg.Planner.PaceFactor,
	}
}

func (h *Handler) scopeFromQuery(c fiber.Ctx, caller access.Caller) (grade int, subject string, errResp error) {
	grade = fiber.Query[int](c, "grade")
	subject = c.Query("subject")
	if grade == 0 {
		grade = caller.Grade
	}
	if grade == 0 || subject == "" {
		return 0, "", apperror.BadRequest(config.ModulePlanner, c, status.LearnMissingParams, "grade ve subject zorunlu")
	}
	if err := h.guard.Check(caller, grade, "study_plan"); err != nil {
		var denied *access.DeniedError
		if errors.As(err, &denied) {
			return 0, "", apperror.Forbidden(config.ModuleAccess, c, status.AccessGradeDenied,
				"bu sınıf seviyesindeki plana erişim izniniz yok", denied)
		}
		return 0, "", apperror.InternalError(config.ModuleAccess, c, err)
	}
	return grade, subject, nil
}

// HandlePlan derives the study plan from the curriculum and mastery state.
func (h *Handler) HandlePlan(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	caller, err := common.CallerFromHeaders(c)
	if err != nil {
		return apperror.BadRequest(config.ModulePlanner, c, status.LearnMissingParams, err.Error())
	}
	grade, subject, errResp := h.scopeFromQuery(c, caller)
	if errResp != nil {
		return errResp
	}

	studentID := c.Query("student_id")
	if studentID == "" || caller.Role == access.RoleStudent {
		studentID = caller.ID
	}

	entries, err := h.mastery.Get(c.Context(), studentID, grade, subject)
	if err != nil {
		return apperror.InternalError(config.ModuleMastery, c, err)
	}
	plan, err := planner.Build(h.graph, grade, subject, entries, h.plannerOptions())
	if err != nil {
		return apperror.InternalError(config.ModulePlanner, c, err)
	}
	return apperror.Success(config.ModulePlanner, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "çalışma planı hazır",
		TrackingID: trackingID,
		Data:       plan,
	})
}

type progressRequest struct {
	Grade   int     `json:"grade"`
	Subject string  `json:"subject"`
	Topic   string  `json:"topic"`
	Score   float64 `json:"score"`
	TimeS   int64   `json:"time_s"`
}

// HandleProgress records a study result and returns the refreshed entry plus
// the plan it produces.
func (h *Handler) HandleProgress(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	caller, err := common.CallerFromHeaders(c)
	if err != nil {
		return apperror.BadRequest(config.ModuleMastery, c, status.LearnMissingParams, err.Error())
	}

	var req progressRequest
	if err := c.Bind().Body(&req); err != nil {
		return apperror.BadRequest(config.ModuleMastery, c, status.LearnMissingParams, "geçersiz istek gövdesi")
	}
	if req.Grade == 0 {
		req.Grade = caller.Grade
	}
	if req.Grade == 0 || req.Subject == "" || req.Topic == "" {
		return apperror.BadRequest(config.ModuleMastery, c, status.LearnMissingParams, "grade, subject ve topic zorunlu")
	}
	if err := h.guard.Check(caller, req.Grade, "mastery"); err != nil {
		var denied *access.DeniedError
		if errors.As(err, &denied) {
			return apperror.Forbidden(config.ModuleAccess, c, status.AccessGradeDenied,
				"bu sınıf seviyesine ilerleme kaydedemezsiniz", denied)
		}
		return apperror.InternalError(config.ModuleAccess, c, err)
	}
	if !h.graph.HasTopic(req.Topic) {
		return apperror.BadRequest(config.ModuleCurriculum, c, status.LearnUnknownTopic, "müfredatta olmayan konu")
	}

	entry, err := h.mastery.Update(c.Context(), caller.ID, req.Grade, req.Subject, req.Topic, req.Score, req.TimeS)
	if err != nil {
		if errors.Is(err, mastery.ErrScoreOutOfRange) || errors.Is(err, mastery.ErrNegativeTime) {
			return apperror.BadRequest(config.ModuleMastery, c, status.LearnScoreOutOfRange, err.Error())
		}
		return apperror.InternalError(config.ModuleMastery, c, err)
	}

	entries, err := h.mastery.Get(c.Context(), caller.ID, req.Grade, req.Subject)
	if err != nil {
		return apperror.InternalError(config.ModuleMastery, c, err)
	}
	plan, err := planner.Build(h.graph, req.Grade, req.Subject, entries, h.plannerOptions())
	if err != nil {
		return apperror.InternalError(config.ModulePlanner, c, err)
	}

	return apperror.Success(config.ModuleMastery, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "ilerleme kaydedildi",
		TrackingID: trackingID,
		Data:       fiber.Map{"entry": entry, "plan": plan},
	})
}

// HandleMastery lists the mastery entries in scope.
func (h *Handler) HandleMastery(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	caller, err := common.CallerFromHeaders(c)
	if err != nil {
		return apperror.BadRequest(config.ModuleMastery, c, status.LearnMissingParams, err.Error())
	}
	grade, subject, errResp := h.scopeFromQuery(c, caller)
	if errResp != nil {
		return errResp
	}

	studentID := c.Query("student_id")
	if studentID == "" || caller.Role == access.RoleStudent {
		studentID = caller.ID
	}
	entries, err := h.mastery.Get(c.Context(), studentID, grade, subject)
	if err != nil {
		return apperror.InternalError(config.ModuleMastery, c, err)
	}
	return apperror.Success(config.ModuleMastery, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "hakimiyet durumu listelendi",
		TrackingID: trackingID,
		Data:       entries,
	})
}

// HandleCurriculum exposes the authored topic order for a scope. Curriculum
// nodes are grade-tagged, so students only read their own grade.
func (h *Handler) HandleCurriculum(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	caller, err := common.CallerFromHeaders(c)
	if err != nil {
		return apperror.BadRequest(config.ModuleCurriculum, c, status.LearnMissingParams, err.Error())
	}
	grade := fiber.Query[int](c, "grade")
	subject := c.Query("subject")
	if grade == 0 {
		grade = caller.Grade
	}
	if grade == 0 || subject == "" {
		return apperror.BadRequest(config.ModuleCurriculum, c, status.LearnMissingParams, "grade ve subject zorunlu")
	}
	if err := h.guard.Check(caller, grade, "curriculum"); err != nil {
		var denied *access.DeniedError
		if errors.As(err, &denied) {
			return apperror.Forbidden(config.ModuleAccess, c, status.AccessGradeDenied,
				"bu sınıf seviyesindeki müfredata erişim izniniz yok", denied)
		}
		return apperror.InternalError(config.ModuleAccess, c, err)
	}

	topics := h.graph.Topics(grade, subject)
	out := make([]fiber.Map, 0, len(topics))
	for _, id := range topics {
		node, err := h.graph.Node(id)
		if err != nil {
			return apperror.InternalError(config.ModuleCurriculum, c, err)
		}
		out = append(out, fiber.Map{
			"id":            node.ID,
			"topic":         node.Topic,
			"unit":          node.Unit,
			"learning_area": node.LearningArea,
			"objectives":    node.Objectives,
			"prerequisites": node.Prerequisites,
		})
	}
	return apperror.Success(config.ModuleCurriculum, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "müfredat listelendi",
		TrackingID: trackingID,
		Data:       out,
	})
}
