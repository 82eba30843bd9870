package handler

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wb-go/wbf/ginext"
)

func NewRouter(reminderHandler *ReminderHandler) *ginext.Engine {
	router := ginext.New("release")
	router.Use(MetricsMiddleware)

	router.GET("/health", reminderHandler.Health)
	router.GET("/metrics", func(c *ginext.Context) {
		promhttp.Handler().ServeHTTP(c.Writer, c.Request)
	})

	router.GET("/api/v1/calendars", reminderHandler.ListCalendars)
	router.GET("/api/v1/occurrences", reminderHandler.ListOccurrences)
	router.GET("/api/v1/reminders", reminderHandler.ListReminders)

	return router
}
