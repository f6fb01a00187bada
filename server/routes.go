package server

import (
	"net/http"

	"github.com/jrsteele09/go-property-market/internal/metrics"
	"github.com/jrsteele09/go-property-market/users"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler())
	if s.media != nil {
		s.RegisterRouteFunc("GET "+RouteMedia, ChainMiddleware(s.media, s.RecoverMiddleware))
	}

	// AUTH
	s.RegisterRouteFunc("POST "+RouteSignup, ChainMiddleware(s.SignUpHandler(), s.RateLimitedAPI()...))
	s.RegisterRouteFunc("POST "+RouteVerifyEmail, ChainMiddleware(s.VerifyEmailHandler(), s.RateLimitedAPI()...))
	s.RegisterRouteFunc("POST "+RouteResendVerification, ChainMiddleware(s.ResendVerificationHandler(), s.RateLimitedAPI()...))
	s.RegisterRouteFunc("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.RateLimitedAPI()...))
	s.RegisterRouteFunc("POST "+RouteRefresh, ChainMiddleware(s.RefreshHandler(), s.RateLimitedAPI()...))
	s.RegisterRouteFunc("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.AuthenticatedAPI()...))
	s.RegisterRouteFunc("POST "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordHandler(), s.RateLimitedAPI()...))
	s.RegisterRouteFunc("POST "+RouteResetPassword, ChainMiddleware(s.ResetPasswordHandler(), s.RateLimitedAPI()...))
	s.RegisterRouteFunc("POST "+RouteChangePassword, ChainMiddleware(s.ChangePasswordHandler(), s.AuthenticatedAPI()...))
	s.RegisterRouteFunc("POST "+RouteValidatePassword, ChainMiddleware(s.ValidatePasswordHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteMe, ChainMiddleware(s.MeHandler(), s.AuthenticatedAPI()...))
	s.RegisterRouteFunc("PATCH "+RouteMe, ChainMiddleware(s.UpdateMeHandler(), s.AuthenticatedAPI()...))

	// PROPERTIES
	s.RegisterRouteFunc("GET "+RouteProperties, ChainMiddleware(s.ListPropertiesHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteProperty, ChainMiddleware(s.GetPropertyHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteProperties, ChainMiddleware(s.CreatePropertyHandler(), s.AuthenticatedAPI(users.RoleOwner, users.RoleAdmin)...))
	s.RegisterRouteFunc("PATCH "+RouteProperty, ChainMiddleware(s.UpdatePropertyHandler(), s.AuthenticatedAPI(users.RoleOwner, users.RoleAdmin)...))
	s.RegisterRouteFunc("DELETE "+RouteProperty, ChainMiddleware(s.DeletePropertyHandler(), s.AuthenticatedAPI(users.RoleOwner, users.RoleAdmin)...))
	s.RegisterRouteFunc("POST "+RoutePropertyImages, ChainMiddleware(s.AddPropertyImageHandler(), s.AuthenticatedAPI(users.RoleOwner, users.RoleAdmin)...))
	s.RegisterRouteFunc("DELETE "+RoutePropertyImage, ChainMiddleware(s.RemovePropertyImageHandler(), s.AuthenticatedAPI(users.RoleOwner, users.RoleAdmin)...))
	s.RegisterRouteFunc("GET "+RouteOwnerProperties, ChainMiddleware(s.OwnerPropertiesHandler(), s.AuthenticatedAPI(users.RoleOwner, users.RoleAdmin)...))

	// REVIEWS
	s.RegisterRouteFunc("GET "+RoutePropertyReviews, ChainMiddleware(s.ListReviewsHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RoutePropertyReviews, ChainMiddleware(s.CreateReviewHandler(), s.AuthenticatedAPI()...))
	s.RegisterRouteFunc("PATCH "+RouteReview, ChainMiddleware(s.UpdateReviewHandler(), s.AuthenticatedAPI()...))
	s.RegisterRouteFunc("DELETE "+RouteReview, ChainMiddleware(s.DeleteReviewHandler(), s.AuthenticatedAPI()...))

	// PAYMENTS
	s.RegisterRouteFunc("POST "+RoutePayments, ChainMiddleware(s.PayHandler(), s.AuthenticatedAPI(users.RoleTenant)...))
	s.RegisterRouteFunc("GET "+RoutePayments, ChainMiddleware(s.ListPaymentsHandler(), s.AuthenticatedAPI()...))
	s.RegisterRouteFunc("GET "+RoutePaymentSummary, ChainMiddleware(s.PaymentSummaryHandler(), s.AuthenticatedAPI()...))
	s.RegisterRouteFunc("GET "+RoutePayment, ChainMiddleware(s.GetPaymentHandler(), s.AuthenticatedAPI()...))

	// COMPLAINTS
	s.RegisterRouteFunc("POST "+RouteComplaints, ChainMiddleware(s.FileComplaintHandler(), s.AuthenticatedAPI()...))
	s.RegisterRouteFunc("GET "+RouteComplaints, ChainMiddleware(s.ListComplaintsHandler(), s.AuthenticatedAPI()...))
	s.RegisterRouteFunc("GET "+RouteComplaint, ChainMiddleware(s.GetComplaintHandler(), s.AuthenticatedAPI()...))
	s.RegisterRouteFunc("PATCH "+RouteComplaintStatus, ChainMiddleware(s.UpdateComplaintStatusHandler(), s.AuthenticatedAPI()...))
	s.RegisterRouteFunc("DELETE "+RouteComplaint, ChainMiddleware(s.DeleteComplaintHandler(), s.AuthenticatedAPI()...))

	// NOTIFICATIONS
	s.RegisterRouteFunc("GET "+RouteNotifications, ChainMiddleware(s.ListNotificationsHandler(), s.AuthenticatedAPI()...))
	s.RegisterRouteFunc("GET "+RouteNotificationUnread, ChainMiddleware(s.UnreadCountHandler(), s.AuthenticatedAPI()...))
	s.RegisterRouteFunc("POST "+RouteNotificationRead, ChainMiddleware(s.MarkNotificationReadHandler(), s.AuthenticatedAPI()...))
	s.RegisterRouteFunc("POST "+RouteNotificationsRead, ChainMiddleware(s.MarkAllNotificationsReadHandler(), s.AuthenticatedAPI()...))
	s.RegisterRouteFunc("DELETE "+RouteNotification, ChainMiddleware(s.DeleteNotificationHandler(), s.AuthenticatedAPI()...))

	// ADMIN
	s.RegisterRouteFunc("GET "+RouteAdminUsers, ChainMiddleware(s.AdminUsersListHandler(), s.AuthenticatedAPI(users.RoleAdmin)...))
	s.RegisterRouteFunc("POST "+RouteAdminUserBlock, ChainMiddleware(s.AdminSetBlockedHandler(true), s.AuthenticatedAPI(users.RoleAdmin)...))
	s.RegisterRouteFunc("POST "+RouteAdminUserUnblock, ChainMiddleware(s.AdminSetBlockedHandler(false), s.AuthenticatedAPI(users.RoleAdmin)...))
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
