package http

import (
	"net/http"

	"github.com/mediconnect/platform-api/internal/delivery/http/guard"
	"github.com/mediconnect/platform-api/internal/delivery/http/handler"
	"github.com/mediconnect/platform-api/internal/delivery/http/middleware"
	"github.com/mediconnect/platform-api/internal/domain/entity"

	"github.com/gorilla/mux"
)

type Router struct {
	router              *mux.Router
	authHandler         *handler.AuthHandler
	userHandler         *handler.UserHandler
	doctorHandler       *handler.DoctorHandler
	appointmentHandler  *handler.AppointmentHandler
	prescriptionHandler *handler.PrescriptionHandler
	auditLogHandler     *handler.AuditLogHandler
	appHandler          *handler.AppHandler
	authMiddleware      *middleware.AuthMiddleware
	corsMiddleware      *middleware.CORSMiddleware
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	doctorHandler *handler.DoctorHandler,
	appointmentHandler *handler.AppointmentHandler,
	prescriptionHandler *handler.PrescriptionHandler,
	auditLogHandler *handler.AuditLogHandler,
	appHandler *handler.AppHandler,
	authMiddleware *middleware.AuthMiddleware,
	corsMiddleware *middleware.CORSMiddleware,
) *Router {
	return &Router{
		router:              mux.NewRouter(),
		authHandler:         authHandler,
		userHandler:         userHandler,
		doctorHandler:       doctorHandler,
		appointmentHandler:  appointmentHandler,
		prescriptionHandler: prescriptionHandler,
		auditLogHandler:     auditLogHandler,
		appHandler:          appHandler,
		authMiddleware:      authMiddleware,
		corsMiddleware:      corsMiddleware,
	}
}

func (r *Router) Setup() *mux.Router {
	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Health check
	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Auth routes (public)
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", r.authHandler.Register).Methods(http.MethodPost)
	auth.HandleFunc("/login", r.authHandler.Login).Methods(http.MethodPost)
	auth.HandleFunc("/forgot-password", r.authHandler.ForgotPassword).Methods(http.MethodPost)
	auth.HandleFunc("/refresh-token", r.authHandler.RefreshToken).Methods(http.MethodPost)

	// Auth routes (protected)
	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(r.authMiddleware.Authenticate)
	authProtected.HandleFunc("/logout", r.authHandler.Logout).Methods(http.MethodPost)
	authProtected.HandleFunc("/me", r.authHandler.GetCurrentUser).Methods(http.MethodGet)

	// Profile routes (any authenticated user)
	profile := api.PathPrefix("/profile").Subrouter()
	profile.Use(r.authMiddleware.Authenticate)
	profile.HandleFunc("", r.userHandler.UpdateProfile).Methods(http.MethodPut)

	// Doctor directory (any authenticated user)
	doctors := api.PathPrefix("/doctors").Subrouter()
	doctors.Use(r.authMiddleware.Authenticate)
	doctors.HandleFunc("", r.doctorHandler.GetAllDoctors).Methods(http.MethodGet)
	doctors.HandleFunc("/{id}", r.doctorHandler.GetDoctor).Methods(http.MethodGet)

	// Appointment routes (patients and doctors)
	appointments := api.PathPrefix("/appointments").Subrouter()
	appointments.Use(r.authMiddleware.Authenticate)
	appointments.Use(middleware.RequireRole(entity.RoleIDPatient, entity.RoleIDDoctor))
	appointments.HandleFunc("", r.appointmentHandler.GetMyAppointments).Methods(http.MethodGet)
	appointments.HandleFunc("/{id}/cancel", r.appointmentHandler.CancelAppointment).Methods(http.MethodPost)

	// Booking is patient only
	booking := api.PathPrefix("/appointments").Subrouter()
	booking.Use(r.authMiddleware.Authenticate)
	booking.Use(middleware.RequirePatient)
	booking.HandleFunc("", r.appointmentHandler.CreateAppointment).Methods(http.MethodPost)

	// Completing a visit is doctor only
	consult := api.PathPrefix("/appointments").Subrouter()
	consult.Use(r.authMiddleware.Authenticate)
	consult.Use(middleware.RequireDoctor)
	consult.HandleFunc("/{id}/complete", r.appointmentHandler.CompleteAppointment).Methods(http.MethodPost)

	// Prescription routes
	prescriptions := api.PathPrefix("/prescriptions").Subrouter()
	prescriptions.Use(r.authMiddleware.Authenticate)
	prescriptions.Use(middleware.RequireRole(entity.RoleIDPatient, entity.RoleIDDoctor))
	prescriptions.HandleFunc("", r.prescriptionHandler.GetMyPrescriptions).Methods(http.MethodGet)

	issuing := api.PathPrefix("/prescriptions").Subrouter()
	issuing.Use(r.authMiddleware.Authenticate)
	issuing.Use(middleware.RequireDoctor)
	issuing.HandleFunc("", r.prescriptionHandler.CreatePrescription).Methods(http.MethodPost)

	// Admin routes (protected - admin only)
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(r.authMiddleware.Authenticate)
	admin.Use(middleware.RequireAdmin)

	// Doctor management (admin)
	admin.HandleFunc("/doctors", r.doctorHandler.CreateDoctor).Methods(http.MethodPost)
	admin.HandleFunc("/doctors", r.doctorHandler.GetAllDoctors).Methods(http.MethodGet)
	admin.HandleFunc("/doctors/{id}", r.doctorHandler.GetDoctor).Methods(http.MethodGet)
	admin.HandleFunc("/doctors/{id}", r.doctorHandler.UpdateDoctor).Methods(http.MethodPut)
	admin.HandleFunc("/doctors/{id}", r.doctorHandler.DeleteDoctor).Methods(http.MethodDelete)

	// User management (admin)
	admin.HandleFunc("/users", r.userHandler.ListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}/active", r.userHandler.SetUserActive).Methods(http.MethodPatch)

	// Audit trail (admin)
	admin.HandleFunc("/audit-logs", r.auditLogHandler.GetAllAuditLogs).Methods(http.MethodGet)
	admin.HandleFunc("/audit-logs/{id}", r.auditLogHandler.GetAuditLog).Methods(http.MethodGet)

	r.setupAppRoutes()

	// Add CORS middleware
	r.router.Use(r.corsMiddleware.Handle)

	return r.router
}

// setupAppRoutes wires the client view routes. Every app route runs
// the Identify middleware so the guard can read the visitor's role;
// the guard then allows the view or issues a redirect.
func (r *Router) setupAppRoutes() {
	identify := r.authMiddleware.Identify

	// Auth views bounce signed-in visitors to their landing view.
	authViews := r.router.NewRoute().Subrouter()
	authViews.Use(identify)
	authViews.Use(guard.AuthView)
	authViews.HandleFunc("/login", r.appHandler.View("login")).Methods(http.MethodGet)
	authViews.HandleFunc("/register", r.appHandler.View("register")).Methods(http.MethodGet)
	authViews.HandleFunc("/forgot-password", r.appHandler.View("forgot-password")).Methods(http.MethodGet)

	// A bare role prefix redirects to that role's landing view.
	for _, role := range guard.RolePrefixes() {
		r.router.HandleFunc("/"+role, guard.RedirectToLanding(role)).Methods(http.MethodGet)
	}

	// Role-scoped view groups.
	for _, role := range guard.RolePrefixes() {
		views := r.router.PathPrefix("/" + role).Subrouter()
		views.Use(identify)
		views.Use(guard.RequireRole(role))
		views.HandleFunc("/landing", r.appHandler.View(role+"-landing")).Methods(http.MethodGet)
	}

	// Anything no route claims is a not-found view.
	r.router.NotFoundHandler = http.HandlerFunc(r.appHandler.NotFound)
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
