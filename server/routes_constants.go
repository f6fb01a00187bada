package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Operational
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
	RouteMedia   = "/media/{key...}"

	// Auth Routes
	RouteSignup             = "/api/auth/signup"
	RouteVerifyEmail        = "/api/auth/verify-email"
	RouteResendVerification = "/api/auth/resend-verification"
	RouteLogin              = "/api/auth/login"
	RouteRefresh            = "/api/auth/refresh"
	RouteLogout             = "/api/auth/logout"
	RouteForgotPassword     = "/api/auth/forgot-password"
	RouteResetPassword      = "/api/auth/reset-password"
	RouteChangePassword     = "/api/auth/change-password"
	RouteValidatePassword   = "/api/validate-password"
	RouteMe                 = "/api/me"

	// Property Routes
	RouteProperties      = "/api/properties"
	RouteProperty        = "/api/properties/{id}"
	RoutePropertyImages  = "/api/properties/{id}/images"
	RoutePropertyImage   = "/api/properties/{id}/images/{imageID}"
	RouteOwnerProperties = "/api/owner/properties"

	// Review Routes
	RoutePropertyReviews = "/api/properties/{id}/reviews"
	RouteReview          = "/api/reviews/{id}"

	// Payment Routes
	RoutePayments       = "/api/payments"
	RoutePaymentSummary = "/api/payments/summary"
	RoutePayment        = "/api/payments/{id}"

	// Complaint Routes
	RouteComplaints      = "/api/complaints"
	RouteComplaint       = "/api/complaints/{id}"
	RouteComplaintStatus = "/api/complaints/{id}/status"

	// Notification Routes
	RouteNotifications      = "/api/notifications"
	RouteNotificationUnread = "/api/notifications/unread-count"
	RouteNotificationRead   = "/api/notifications/{id}/read"
	RouteNotificationsRead  = "/api/notifications/read-all"
	RouteNotification       = "/api/notifications/{id}"

	// Admin Routes
	RouteAdminUsers       = "/api/admin/users"
	RouteAdminUserBlock   = "/api/admin/users/{id}/block"
	RouteAdminUserUnblock = "/api/admin/users/{id}/unblock"
)
