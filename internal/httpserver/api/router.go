// Package api exposes the billing backend's HTTP surface: auth, the report
// suite, invoices, contracts, notifications and the admin endpoints.
package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nusacloud/billing-api/internal/app"
	"github.com/nusacloud/billing-api/internal/auth"
	contractsvc "github.com/nusacloud/billing-api/internal/services/contracts"
	directorysvc "github.com/nusacloud/billing-api/internal/services/directory"
	gatewaysvc "github.com/nusacloud/billing-api/internal/services/gateway"
	invoicesvc "github.com/nusacloud/billing-api/internal/services/invoices"
	notificationsvc "github.com/nusacloud/billing-api/internal/services/notifications"
	reportingsvc "github.com/nusacloud/billing-api/internal/services/reporting"
	settingssvc "github.com/nusacloud/billing-api/internal/services/settings"
)

type handler struct {
	container     *app.Container
	auth          *auth.Service
	reporting     *reportingsvc.Service
	invoices      *invoicesvc.Service
	contracts     *contractsvc.Service
	notifications *notificationsvc.Service
	directory     *directorysvc.Service
	settings      *settingssvc.Service
	gateway       *gatewaysvc.Service
}

// Register mounts the API routes on the fiber app.
func Register(fiberApp *fiber.App, container *app.Container) {
	if fiberApp == nil || container == nil {
		return
	}

	h := &handler{
		container:     container,
		auth:          container.Auth,
		reporting:     container.Reporting,
		invoices:      container.Invoices,
		contracts:     container.Contracts,
		notifications: container.Notifications,
		directory:     container.Directory,
		settings:      container.Settings,
		gateway:       container.Gateway,
	}

	api := fiberApp.Group("/api")
	api.Post("/auth/login", h.login)

	authed := api.Group("", requireAuth(container.Tokens, container.Config.Auth.CookieName))
	authed.Get("/auth/me", h.me)
	authed.Post("/auth/logout", h.logout)
	authed.Post("/auth/password", h.completePasswordSetup)

	billing := authed.Group("/billing")
	billing.Get("/projects", h.projects)
	billing.Get("/summary", h.summary)
	billing.Get("/breakdown/services", h.serviceBreakdown)
	billing.Get("/breakdown/projects", h.projectBreakdown)
	billing.Get("/monthly-usage", h.monthlyUsage)
	billing.Get("/budget", h.getBudget)
	billing.Patch("/budget", h.updateBudget)
	billing.Get("/daily/services", h.dailyServiceBreakdown)
	billing.Get("/daily/projects", h.dailyProjectBreakdown)
	billing.Get("/daily/projects/:projectID", h.projectDailyBreakdown)
	billing.Get("/totals", h.rangeTotals)
	billing.Get("/sku/trend", h.skuTrend)
	billing.Get("/sku/breakdown", h.skuBreakdown)

	authed.Get("/invoices", h.listInvoices)
	authed.Get("/invoices/:invoiceID/view", h.invoiceViewURL)
	authed.Get("/invoices/:invoiceID/document", h.invoiceDocument)
	authed.Get("/invoices/:invoiceID/pdf", h.invoicePDF)

	authed.Get("/contracts", h.listContracts)
	authed.Get("/contracts/:contractID/view", h.contractViewURL)
	authed.Get("/contracts/:contractID/document", h.contractDocument)

	authed.Get("/users/me/client", h.myClient)

	authed.Get("/notifications", h.listNotifications)
	authed.Patch("/notifications/:notificationID/read", h.markNotificationRead)
	authed.Delete("/notifications/:notificationID", h.deleteNotification)

	admin := authed.Group("/admin", requireAdmin())
	admin.Post("/auth/register", h.register)
	admin.Get("/clients", h.listClients)
	admin.Get("/users", h.listUsers)
	admin.Delete("/users/:userID", h.deleteUser)

	admin.Get("/invoices", h.adminListInvoices)
	admin.Patch("/invoices/:invoiceID/status", h.updateInvoiceStatus)
	admin.Patch("/invoices/:invoiceID", h.updateInvoiceDetails)

	admin.Post("/contracts", h.createContract)
	admin.Put("/contracts/:contractID", h.updateContract)
	admin.Delete("/contracts/:contractID", h.deleteContract)

	admin.Get("/gateway/clients", h.listGatewayClients)
	admin.Get("/gateway/contracts", h.listGatewayContracts)
	admin.Post("/gateway/contracts", h.createGatewayContract)
	admin.Get("/gateway/contracts/:gwContractID", h.gatewayContractDetails)
	admin.Put("/gateway/contracts/:gwContractID", h.updateGatewayContract)
	admin.Delete("/gateway/contracts/:gwContractID", h.deleteGatewayContract)
	admin.Get("/gateway/contracts/:gwContractID/view", h.gatewayContractViewURL)
	admin.Get("/gateway/contracts/:gwContractID/document", h.gatewayContractDocument)

	admin.Get("/settings/emails", h.listInternalEmails)
	admin.Post("/settings/emails", h.addInternalEmail)
	admin.Delete("/settings/emails/:emailID", h.deleteInternalEmail)
}
