package api

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"atlab/internal/auth"
	"atlab/internal/booking"
	"atlab/internal/metrics"
)

func (s *Server) campuses(c *gin.Context) {
	type campus struct {
		Name string   `json:"name"`
		Days []string `json:"days"`
	}
	out := []campus{}
	for _, name := range s.opts.Engine.Schedule().Names() {
		days, err := s.opts.Engine.Days(name)
		if err != nil {
			writeError(c, err)
			return
		}
		labels := make([]string, 0, len(days))
		for _, d := range days {
			labels = append(labels, d.Label)
		}
		out = append(out, campus{Name: name, Days: labels})
	}
	c.JSON(http.StatusOK, gin.H{"campuses": out, "exams": s.opts.Engine.Exams()})
}

func (s *Server) availability(c *gin.Context) {
	campus := c.Query("campus")
	day := c.Query("day")
	if campus == "" || day == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "campus and day are required"})
		return
	}
	dsps, _ := strconv.ParseBool(c.DefaultQuery("dsps", "false"))

	options, err := s.opts.Engine.FreeSlots(c.Request.Context(), campus, day, dsps)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"campus": campus, "day": day, "dsps": dsps, "options": options})
}

func (s *Server) signups(c *gin.Context) {
	days, err := s.opts.Engine.Signups(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": days})
}

func (s *Server) book(c *gin.Context) {
	var req booking.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.opts.Engine.Book(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	kind := "single"
	switch {
	case res.Rescheduled:
		kind = "reschedule"
	case len(res.Booked) > 1:
		kind = "double"
	}
	if len(res.Booked) > 0 {
		metrics.Bookings.WithLabelValues(res.Booked[0].Campus, kind).Inc()
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) ask(c *gin.Context) {
	var req struct {
		Question string `json:"question" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reply, err := s.opts.Assistant.Ask(req.Question)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Passcode string `json:"passcode" binding:"required"`
		Staff    string `json:"staff"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.opts.Passcode.Check(req.Passcode); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	staff := strings.TrimSpace(req.Staff)
	if staff == "" {
		staff = "staff"
	}
	session, err := auth.Issue(staff, auth.RoleAdmin, s.opts.Issuer, s.opts.SigningKey, s.opts.AdminTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) adminBookings(c *gin.Context) {
	view, err := s.opts.Engine.AdminView(c.Request.Context(), c.Query("campus"))
	if err != nil {
		writeError(c, err)
		return
	}
	metrics.RowErrors.Add(float64(len(view.RowErrors)))
	c.JSON(http.StatusOK, view)
}

func (s *Server) todayCSV(c *gin.Context) {
	view, err := s.opts.Engine.AdminView(c.Request.Context(), c.Query("campus"))
	if err != nil {
		writeError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := booking.WriteCSV(&buf, booking.Columns, view.Today); err != nil {
		writeError(c, err)
		return
	}
	name := "all"
	if view.Campus != "" {
		name = strings.ToLower(strings.ReplaceAll(view.Campus, " ", "_"))
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="today_%s.csv"`, name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) reschedule(c *gin.Context) {
	var req booking.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := s.opts.Engine.Reschedule(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(res.Booked) > 0 {
		metrics.Bookings.WithLabelValues(res.Booked[0].Campus, "staff_reschedule").Inc()
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) grade(c *gin.Context) {
	var req booking.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.GradedBy == "" {
		if claims, ok := c.Get(auth.ClaimsKey); ok {
			req.GradedBy = claims.(auth.Claims).Subject
		}
	}
	rec, err := s.opts.Engine.Grade(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) cancel(c *gin.Context) {
	var req struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	canceled, err := s.opts.Engine.Cancel(c.Request.Context(), req.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(canceled) > 0 {
		metrics.Bookings.WithLabelValues(canceled[0].Campus, "cancel").Inc()
	}
	c.JSON(http.StatusOK, gin.H{"canceled": canceled})
}

func (s *Server) gradebookRoster(c *gin.Context) {
	if s.opts.Gradebook == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "gradebook not configured"})
		return
	}
	rows, err := s.opts.Gradebook.Roster(c.Request.Context())
	if err != nil {
		log.Printf("gradebook roster: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "gradebook unavailable, try again"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": rows})
}
