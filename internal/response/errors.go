package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrForbidden          ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Attempt engine ────────────────────────────────────────────────
	ErrPoolEmpty  ErrCode = "POOL_EMPTY"
	ErrInvalidTag ErrCode = "INVALID_TAG"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Login yoki parol noto'g'ri."
	case ErrTokenRequired:
		return "Autentifikatsiya tokeni talab qilinadi."
	case ErrTokenInvalid:
		return "Autentifikatsiya tokeni yaroqsiz."
	case ErrForbidden:
		return "Bu resursga ruxsatingiz yo'q."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validatsiya xatosi. Kiritilgan ma'lumotlarni tekshiring."
	case ErrInvalidID:
		return "ID formati noto'g'ri."
	case ErrInvalidPayload:
		return "So'rov ma'lumotlari noto'g'ri."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resurs topilmadi."

	// ─── Attempt engine ────────────────────────────────────────────────
	case ErrPoolEmpty:
		return "Bu mavzuda savollar yo'q."
	case ErrInvalidTag:
		return "Noto'g'ri tag."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "So'rovlar soni ko'payib ketdi. Keyinroq urinib ko'ring."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Ichki server xatosi yuz berdi."
	default:
		return "Kutilmagan xatolik yuz berdi."
	}
}
