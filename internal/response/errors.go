package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrEmailInUse         ErrCode = "EMAIL_IN_USE"
	ErrWeakPassword       ErrCode = "WEAK_PASSWORD"
	ErrAccountBlocked     ErrCode = "ACCOUNT_BLOCKED"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam / attempt ────────────────────────────────────────────────
	ErrInvalidAccessCode  ErrCode = "INVALID_ACCESS_CODE"
	ErrExamNotPublished   ErrCode = "EXAM_NOT_PUBLISHED"
	ErrExamNotDraft       ErrCode = "EXAM_NOT_DRAFT"
	ErrNotExamOwner       ErrCode = "NOT_EXAM_OWNER"
	ErrNoQuestions        ErrCode = "NO_QUESTIONS"
	ErrAttemptNotFound    ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptFinished    ErrCode = "ATTEMPT_FINISHED"
	ErrInvalidAnswer      ErrCode = "INVALID_ANSWER"
	ErrInvalidQuestionRef ErrCode = "INVALID_QUESTION_REF"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server / persistence ──────────────────────────────────────────
	ErrPersistence ErrCode = "PERSISTENCE_ERROR"
	ErrInternal    ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Incorrect email or password."
	case ErrEmailInUse:
		return "An account with this email already exists."
	case ErrWeakPassword:
		return "Password must be at least 6 characters."
	case ErrAccountBlocked:
		return "This account has been blocked. Please contact your teacher."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrTeacherAccessOnly:
		return "This resource is restricted to teachers."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Exam / attempt ────────────────────────────────────────────────
	case ErrInvalidAccessCode:
		return "No exam matches this access code."
	case ErrExamNotPublished:
		return "This exam has not been published."
	case ErrExamNotDraft:
		return "This exam is not in DRAFT status."
	case ErrNotExamOwner:
		return "You are not the owner of this exam."
	case ErrNoQuestions:
		return "This exam has no questions."
	case ErrAttemptNotFound:
		return "No active attempt with this ID."
	case ErrAttemptFinished:
		return "This attempt has already been submitted."
	case ErrInvalidAnswer:
		return "Answers must be one of the letters A-D."
	case ErrInvalidQuestionRef:
		return "The referenced question does not belong to this exam."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type."
	case ErrFileTooLarge:
		return "File size exceeds the limit."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server / persistence ──────────────────────────────────────────
	case ErrPersistence:
		return "A storage error occurred. Please retry the operation."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
