package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/choishiam0906/govhelper/internal/api/shared"
	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/generation"
	"github.com/choishiam0906/govhelper/internal/service/auth"
	"github.com/choishiam0906/govhelper/internal/service/batch"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/choishiam0906/govhelper/internal/task"
	"github.com/go-playground/validator/v10"
)

// User-facing messages.
const (
	MsgAIUnavailable        = "AI 서비스가 일시적으로 사용 불가능합니다"
	MsgAIFailed             = "AI 분석 중 오류가 발생했어요"
	MsgContentBlocked       = "AI가 이 요청에 응답할 수 없어요"
	MsgAnnouncementNotFound = "공고를 찾을 수 없어요"
	MsgCompanyNotFound      = "기업 정보를 찾을 수 없어요"
	MsgMatchNotFound        = "매칭 결과를 찾을 수 없어요"
	MsgNotFound             = "요청한 정보를 찾을 수 없어요"
	MsgForbidden            = "접근 권한이 없어요"
	MsgLoginRequired        = "로그인이 필요해요"
	MsgInvalidRequest       = "요청 형식이 올바르지 않아요"
	MsgInvalidFeedback      = "정확도 평가를 1-5점으로 입력해주세요"
	MsgContentTooShort      = "분석할 공고 내용이 부족해요"
	MsgDuplicate            = "이미 존재하는 데이터예요"
	MsgQueueBusy            = "작업 대기열이 가득 찼어요. 잠시 후 다시 시도해주세요"
	MsgUnknownJobKind       = "지원하지 않는 작업 종류예요"
	MsgInternal             = "요청 처리 중 오류가 발생했어요"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized

	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	case store.IsNotFoundError(err):
		return http.StatusNotFound

	case store.IsDuplicateError(err):
		return http.StatusConflict

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrEmptyContent),
		errors.Is(err, domain.ErrContentTooShort),
		errors.Is(err, domain.ErrInvalidPromptType),
		errors.Is(err, domain.ErrInvalidWeight),
		errors.Is(err, domain.ErrInvalidFeedback),
		errors.Is(err, batch.ErrUnknownKind):
		return http.StatusBadRequest

	// A missing credential is an outage from the client's point of view.
	case errors.Is(err, generation.ErrRateLimited),
		errors.Is(err, generation.ErrInvalidConfig),
		errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrQueueClosed):
		return http.StatusServiceUnavailable

	case errors.Is(err, generation.ErrContentBlocked):
		return http.StatusUnprocessableEntity

	case errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrNoJSON),
		errors.Is(err, generation.ErrEmbeddingFailed):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing Korean message for err.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return MsgInternal
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken):
		return MsgLoginRequired

	case errors.Is(err, domain.ErrUnauthorized):
		return MsgForbidden

	case errors.Is(err, store.ErrAnnouncementNotFound):
		return MsgAnnouncementNotFound
	case errors.Is(err, store.ErrCompanyNotFound):
		return MsgCompanyNotFound
	case errors.Is(err, store.ErrMatchNotFound):
		return MsgMatchNotFound
	case store.IsNotFoundError(err):
		return MsgNotFound

	case store.IsDuplicateError(err):
		return MsgDuplicate

	case errors.Is(err, domain.ErrInvalidFeedback):
		return MsgInvalidFeedback
	case errors.Is(err, domain.ErrContentTooShort), errors.Is(err, domain.ErrEmptyContent):
		return MsgContentTooShort
	case errors.Is(err, batch.ErrUnknownKind):
		return MsgUnknownJobKind
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidPromptType),
		errors.Is(err, domain.ErrInvalidWeight):
		return MsgInvalidRequest

	case errors.Is(err, generation.ErrRateLimited),
		errors.Is(err, generation.ErrInvalidConfig):
		return MsgAIUnavailable
	case errors.Is(err, task.ErrQueueFull), errors.Is(err, task.ErrQueueClosed):
		return MsgQueueBusy

	case errors.Is(err, generation.ErrContentBlocked):
		return MsgContentBlocked
	case errors.Is(err, generation.ErrGenerationFailed),
		errors.Is(err, generation.ErrInvalidResponse),
		errors.Is(err, generation.ErrNoJSON),
		errors.Is(err, generation.ErrEmbeddingFailed):
		return MsgAIFailed

	default:
		return MsgInternal
	}
}

// HandleAPIError writes the status and message for err and logs the cause.
// defaultMsg replaces the generic message of unmapped errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMsg != "" {
		msg = defaultMsg
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err)
}

// SanitizeValidationError turns validator errors into a message naming the
// first offending field, without struct names or rule internals.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return MsgInvalidRequest
	}
	fe := verrs[0]
	return fmt.Sprintf("%s: %s", lowerFirst(fe.Field()), validationTagMessage(fe.Tag()))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "필수 항목이에요"
	case "min", "gte":
		return "값이 너무 작아요"
	case "max", "lte":
		return "값이 너무 커요"
	case "oneof":
		return "허용되지 않는 값이에요"
	case "uuid", "uuid4":
		return "올바른 ID 형식이 아니에요"
	default:
		return "올바르지 않은 값이에요"
	}
}
