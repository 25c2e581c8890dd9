package ask

import (
	"context"
	"errors"
	"time"

	"github.com/efezeyus/aiogretmen-sub001/config"
	"github.com/efezeyus/aiogretmen-sub001/internal/api/common"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/access"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/ledger"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/prompt"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/provider"
	"github.com/efezeyus/aiogretmen-sub001/internal/core/retriever"
	"github.com/efezeyus/aiogretmen-sub001/internal/database/model"
	"github.com/efezeyus/aiogretmen-sub001/pkg/apperror"
	"github.com/efezeyus/aiogretmen-sub001/pkg/apperror/status"
	"github.com/efezeyus/aiogretmen-sub001/pkg/logger"

	"github.com/gofiber/fiber/v3"
	"gorm.io/gorm"
)

type Handler struct {
	guard  *access.Guard
	ledger *ledger.Service
	router *provider.Router
	db     *gorm.DB
}

func NewHandler(guard *access.Guard, ledgerSvc *ledger.Service, router *provider.Router, db *gorm.DB) *Handler {
	return &Handler{guard: guard, ledger: ledgerSvc, router: router, db: db}
}

type askRequest struct {
	Grade    int    `json:"grade"`
	Subject  string `json:"subject"`
	Topic    string `json:"topic"`
	Question string `json:"question"`
	Mode     string `json:"mode"`
	K        int    `json:"k"`
}

type sourceRef struct {
	Page       int32   `json:"page"`
	ChunkIndex int32   `json:"chunk_index"`
	Score      float32 `json:"score"`
}

type askResponse struct {
	Answer        string      `json:"answer"`
	Citations     []string    `json:"citations,omitempty"`
	Sources       []sourceRef `json:"sources,omitempty"`
	InteractionID uint        `json:"interaction_id"`
	Provider      string      `json:"provider"`
	Model         string      `json:"model"`
	LatencyMs     int64       `json:"latency_ms"`
}

// HandleAsk answers a curriculum question grounded in retrieved chunks.
func (h *Handler) HandleAsk(c fiber.Ctx) error {
	return h.answer(c, "")
}

// HandleTeach forces teach mode regardless of the request body.
func (h *Handler) HandleTeach(c fiber.Ctx) error {
	return h.answer(c, prompt.ModeTeach)
}

func (h *Handler) answer(c fiber.Ctx, forceMode string) error {
	trackingID := c.Get("X-Request-ID")

	caller, err := common.CallerFromHeaders(c)
	if err != nil {
		return apperror.BadRequest(config.ModuleServer, c, status.AskMissingParams, err.Error())
	}

	var req askRequest
	if err := c.Bind().Body(&req); err != nil {
		return apperror.BadRequest(config.ModuleServer, c, status.AskMissingParams, "geçersiz istek gövdesi")
	}
	if forceMode != "" {
		req.Mode = forceMode
	}
	if req.Mode == "" {
		req.Mode = prompt.ModeQA
	}
	if req.Question == "" || req.Subject == "" || req.Grade == 0 {
		return apperror.BadRequest(config.ModuleServer, c, status.AskMissingParams, "grade, subject ve question zorunlu")
	}

	if err := h.guard.Check(caller, req.Grade, "document_collection"); err != nil {
		var denied *access.DeniedError
		if errors.As(err, &denied) {
			return apperror.Forbidden(config.ModuleAccess, c, status.AccessGradeDenied,
				"bu sınıf seviyesindeki içeriğe erişim izniniz yok", denied)
		}
		return apperror.InternalError(config.ModuleAccess, c, err)
	}

	collection, err := h.latestCollection(c.Context(), req.Grade, req.Subject)
	if err != nil {
		return apperror.NotFound(config.ModuleRetriever, c, status.AskCollectionNotFound,
			"bu sınıf ve ders için işlenmiş belge bulunamadı")
	}

	vector, err := retriever.EmbedQuestion(c.Context(), req.Question)
	if err != nil {
		return apperror.WriteError(config.ModuleRetriever, c, fiber.StatusServiceUnavailable,
			status.AskAllProvidersFailed, "soru gömme başarısız", err.Error())
	}
	hits, err := retriever.Search(c.Context(), collection, vector, req.K, retriever.Filter{Grade: req.Grade, Subject: req.Subject})
	if err != nil {
		switch {
		case errors.Is(err, retriever.ErrCollectionNotFound):
			return apperror.NotFound(config.ModuleRetriever, c, status.AskCollectionNotFound, "koleksiyon bulunamadı")
		case errors.Is(err, retriever.ErrDimensionMismatch):
			return apperror.WriteError(config.ModuleRetriever, c, fiber.StatusInternalServerError,
				status.AskDimensionMismatch, "vektör boyutu uyumsuz", err.Error())
		default:
			return apperror.InternalError(config.ModuleRetriever, c, err)
		}
	}

	history, err := h.ledger.RecentHistory(c.Context(), caller.ID, req.Grade, req.Subject, config.Cfg.Prompt.HistoryTurns, 280)
	if err != nil {
		logger.Warn("%v: history lookup failed, answering without it: %v", config.ModuleLedger, err)
	}

	chunks := make([]prompt.Chunk, len(hits))
	for i, hit := range hits {
		chunks[i] = prompt.Chunk{PageTag: prompt.PageTag(hit.Page, hit.ChunkIndex), Text: hit.Content}
	}
	composed, err := prompt.Compose(prompt.Input{
		Mode:     req.Mode,
		Grade:    req.Grade,
		Subject:  req.Subject,
		Topic:    req.Topic,
		Question: req.Question,
		Chunks:   chunks,
		History:  history,
		TokenCap: config.Cfg.Prompt.TokenCap,
	})
	if err != nil {
		switch {
		case errors.Is(err, prompt.ErrPromptTooLarge):
			return apperror.BadRequest(config.ModulePrompt, c, status.AskPromptTooLarge, "soru bağlamla birlikte çok uzun")
		case errors.Is(err, prompt.ErrUnknownMode):
			return apperror.BadRequest(config.ModulePrompt, c, status.AskMissingParams, "bilinmeyen mod")
		default:
			return apperror.BadRequest(config.ModulePrompt, c, status.AskMissingParams, err.Error())
		}
	}

	messages := make([]provider.Message, len(composed.Messages))
	for i, m := range composed.Messages {
		messages[i] = provider.Message{Role: m.Role, Content: m.Content}
	}
	result, attempts, askErr := h.router.Ask(c.Context(), caller.ID, messages, provider.Params{Temperature: 0.7, MaxTokens: 900})

	interactionID := h.recordAttempts(c.Context(), caller, req, attempts, result, askErr)

	if askErr != nil {
		if errors.Is(askErr, provider.ErrRateLimited) {
			return apperror.WriteError(config.ModuleProvider, c, fiber.StatusTooManyRequests,
				status.AskRateLimited, "çok fazla istek gönderdiniz, lütfen biraz bekleyin", nil)
		}
		return apperror.ServiceUnavailable(config.ModuleProvider, c, status.AskAllProvidersFailed,
			"şu anda yanıt üretilemiyor, lütfen tekrar deneyin")
	}

	sources := make([]sourceRef, len(hits))
	for i, hit := range hits {
		sources[i] = sourceRef{Page: hit.Page, ChunkIndex: hit.ChunkIndex, Score: hit.Score}
	}
	return apperror.Success(config.ModuleServer, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "yanıt hazır",
		TrackingID: trackingID,
		Data: askResponse{
			Answer:        result.Text,
			Citations:     prompt.ExtractCitations(result.Text),
			Sources:       sources,
			InteractionID: interactionID,
			Provider:      result.Telemetry.ProviderID,
			Model:         result.Telemetry.ModelID,
			LatencyMs:     result.Telemetry.LatencyMs,
		},
	})
}

// recordAttempts ledgers every provider try: failed attempts as failed rows,
// the successful one with the full answer. A request refused before any
// provider was tried (throttled) still gets a failed row so metrics stay
// honest. Returns the success row id.
func (h *Handler) recordAttempts(ctx context.Context, caller access.Caller, req askRequest, attempts []provider.Attempt, result provider.Result, askErr error) uint {
	var successID uint
	if len(attempts) == 0 && askErr != nil {
		row := model.Interaction{
			StudentID:  caller.ID,
			Grade:      req.Grade,
			Subject:    req.Subject,
			Topic:      req.Topic,
			Mode:       req.Mode,
			PromptText: req.Question,
			Failed:     true,
			ErrorKind:  errorKind(askErr),
		}
		if err := h.ledger.Append(ctx, &row); err != nil {
			logger.Error(err, "%v: failed to ledger interaction", config.ModuleLedger)
		}
		return 0
	}
	for i, attempt := range attempts {
		isLast := i == len(attempts)-1
		succeeded := isLast && askErr == nil

		row := model.Interaction{
			StudentID:  caller.ID,
			Grade:      req.Grade,
			Subject:    req.Subject,
			Topic:      req.Topic,
			Mode:       req.Mode,
			PromptText: req.Question,
			ProviderID: attempt.Provider,
			ModelID:    attempt.Model,
			LatencyMs:  attempt.Latency.Milliseconds(),
		}
		if succeeded {
			row.ResponseText = result.Text
			row.InputTokens = result.Telemetry.InputTokens
			row.OutputTokens = result.Telemetry.OutputTokens
			row.Confidence = result.Telemetry.Confidence
		} else {
			row.Failed = true
			if attempt.Err != nil {
				row.ErrorKind = errorKind(attempt.Err)
			}
		}
		if err := h.ledger.Append(ctx, &row); err != nil {
			logger.Error(err, "%v: failed to ledger interaction", config.ModuleLedger)
			continue
		}
		if succeeded {
			successID = row.ID
		}
	}
	return successID
}

func errorKind(err error) string {
	var pe *provider.ProviderError
	if errors.As(err, &pe) {
		return string(pe.Code)
	}
	if errors.Is(err, provider.ErrRateLimited) {
		return "rate_limited"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "unknown"
}

// latestCollection resolves the newest ready collection for the scope.
func (h *Handler) latestCollection(ctx context.Context, grade int, subject string) (string, error) {
	var doc model.Document
	err := h.db.WithContext(ctx).
		Where("grade = ? AND subject = ? AND status = ?", grade, subject, "ready").
		Order("id DESC").
		First(&doc).Error
	if err != nil {
		return "", err
	}
	return doc.Collection, nil
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

// HandleFeedback attaches the student's verdict to an earlier answer.
func (h *Handler) HandleFeedback(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	id := fiber.Params[uint](c, "id")
	if id == 0 {
		return apperror.BadRequest(config.ModuleLedger, c, status.AskMissingParams, "geçersiz etkileşim id")
	}
	var req feedbackRequest
	if err := c.Bind().Body(&req); err != nil {
		return apperror.BadRequest(config.ModuleLedger, c, status.AskMissingParams, "geçersiz istek gövdesi")
	}
	if err := h.ledger.SetFeedback(c.Context(), id, req.Feedback); err != nil {
		return apperror.BadRequest(config.ModuleLedger, c, status.AskMissingParams, err.Error())
	}
	return apperror.Success(config.ModuleLedger, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "geri bildirim kaydedildi",
		TrackingID: trackingID,
	})
}

// HandleInteractions is the staff-only ledger query surface.
func (h *Handler) HandleInteractions(c fiber.Ctx) error {
	trackingID := c.Get("X-Request-ID")

	caller, err := common.CallerFromHeaders(c)
	if err != nil {
		return apperror.BadRequest(config.ModuleLedger, c, status.AskMissingParams, err.Error())
	}
	if caller.Role == access.RoleStudent {
		return apperror.Forbidden(config.ModuleAccess, c, status.AccessRoleDenied,
			"bu kaynak yalnızca öğretmen ve yöneticilere açıktır", nil)
	}

	f := ledger.Filter{
		Provider: c.Query("provider"),
		Subject:  c.Query("subject"),
		Feedback: c.Query("feedback"),
		Grade:    fiber.Query[int](c, "grade"),
		Page:     fiber.Query[int](c, "page"),
		PageSize: fiber.Query[int](c, "page_size"),
	}
	if since := c.Query("since"); since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			f.Since = &t
		}
	}
	if until := c.Query("until"); until != "" {
		if t, err := time.Parse(time.RFC3339, until); err == nil {
			f.Until = &t
		}
	}

	records, total, err := h.ledger.Query(c.Context(), f)
	if err != nil {
		return apperror.InternalError(config.ModuleLedger, c, err)
	}
	return apperror.Success(config.ModuleLedger, c, apperror.FiberSuccessMessage{
		Code:       status.OK,
		Message:    "etkileşimler listelendi",
		TrackingID: trackingID,
		Data:       fiber.Map{"total": total, "items": records},
	})
}
