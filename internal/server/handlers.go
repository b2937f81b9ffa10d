package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/linguaforge/linguaforge/internal/content"
	"github.com/linguaforge/linguaforge/internal/generation"
)

type assessmentBody struct {
	CourseID int64  `json:"courseId" binding:"required"`
	Language string `json:"language"`
	Refresh  bool   `json:"refresh"`
}

func (s *Server) createAssessment(c *gin.Context) {
	var body assessmentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.svc.CreateAssessment(c.Request.Context(), generation.AssessmentRequest{
		CourseID: body.CourseID,
		Language: body.Language,
		Refresh:  body.Refresh,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type analyzeBody struct {
	CourseID int64 `json:"courseId" binding:"required"`
	// LessonID defaults to the course's diagnostic lesson.
	LessonID int64 `json:"lessonId"`
}

func (s *Server) analyzeAssessment(c *gin.Context) {
	var body analyzeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	profile, err := s.svc.AnalyzeAssessment(c.Request.Context(), c.GetString(userKey), body.CourseID, body.LessonID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type curriculumBody struct {
	CourseID       int64                 `json:"courseId" binding:"required"`
	Language       string                `json:"language"`
	Profile        *content.SkillProfile `json:"profile"`
	UnitCount      int                   `json:"unitCount"`
	LessonsPerUnit int                   `json:"lessonsPerUnit"`
}

func (s *Server) generateCurriculum(c *gin.Context) {
	var body curriculumBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	if body.Profile != nil {
		level, err := content.ParseLevel(string(body.Profile.Level))
		if err != nil {
			badRequest(c, fmt.Errorf("profile: %w", err))
			return
		}
		body.Profile.Level = level
	}
	res, err := s.svc.GenerateCurriculum(c.Request.Context(), generation.CurriculumRequest{
		UserID:         c.GetString(userKey),
		CourseID:       body.CourseID,
		Language:       body.Language,
		Profile:        body.Profile,
		UnitCount:      body.UnitCount,
		LessonsPerUnit: body.LessonsPerUnit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type adaptiveBody struct {
	UnitID   int64                      `json:"unitId" binding:"required"`
	Language string                     `json:"language"`
	History  []content.ChallengeOutcome `json:"history"`
}

func (s *Server) adaptiveLessons(c *gin.Context) {
	var body adaptiveBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.svc.GenerateAdaptiveLessons(c.Request.Context(), generation.AdaptiveRequest{
		UserID:   c.GetString(userKey),
		UnitID:   body.UnitID,
		Language: body.Language,
		History:  body.History,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type lessonsBody struct {
	CourseID       int64    `json:"courseId" binding:"required"`
	Language       string   `json:"language"`
	Level          string   `json:"level"`
	Topics         []string `json:"topics"`
	UnitCount      int      `json:"unitCount"`
	LessonsPerUnit int      `json:"lessonsPerUnit"`
}

func (s *Server) generateLessons(c *gin.Context) {
	var body lessonsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	var level content.Level
	if body.Level != "" {
		l, err := content.ParseLevel(body.Level)
		if err != nil {
			badRequest(c, err)
			return
		}
		level = l
	}
	res, err := s.svc.GenerateCourseContent(c.Request.Context(), generation.CourseContentRequest{
		CourseID:       body.CourseID,
		Language:       body.Language,
		Level:          level,
		Topics:         body.Topics,
		UnitCount:      body.UnitCount,
		LessonsPerUnit: body.LessonsPerUnit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type assessAndGenerateBody struct {
	CourseID       int64  `json:"courseId" binding:"required"`
	LessonID       int64  `json:"lessonId"`
	Language       string `json:"language"`
	UnitCount      int    `json:"unitCount"`
	LessonsPerUnit int    `json:"lessonsPerUnit"`
}

func (s *Server) assessAndGenerate(c *gin.Context) {
	var body assessAndGenerateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.svc.AssessAndGenerate(c.Request.Context(), generation.AssessAndGenerateRequest{
		UserID:         c.GetString(userKey),
		CourseID:       body.CourseID,
		LessonID:       body.LessonID,
		Language:       body.Language,
		UnitCount:      body.UnitCount,
		LessonsPerUnit: body.LessonsPerUnit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) progress(c *gin.Context) {
	courseID, err := strconv.ParseInt(c.Query("courseId"), 10, 64)
	if err != nil || courseID <= 0 {
		badRequest(c, fmt.Errorf("courseId query parameter must be a positive integer"))
		return
	}
	report, err := s.svc.Progress(c.Request.Context(), c.GetString(userKey), courseID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
