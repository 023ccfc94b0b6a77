package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"bookforge-api/internal/application/jobs"
	"bookforge-api/internal/interfaces/http/dto"
)

// JobHandler 生成任务处理器
type JobHandler struct {
	jobs *jobs.Service
}

// NewJobHandler 创建任务处理器
func NewJobHandler(jobService *jobs.Service) *JobHandler {
	return &JobHandler{jobs: jobService}
}

// Get 查询单个任务状态
// @Summary 查询任务
// @Tags Jobs
// @Produce json
// @Router /v1/jobs/{id} [get]
func (h *JobHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	job, err := h.jobs.GetForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.NewJobResponse(job))
}

// List 查询当前用户的任务列表
// @Summary 任务列表
// @Tags Jobs
// @Produce json
// @Router /v1/jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	jobList, err := h.jobs.ListForUser(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.NewJobResponses(jobList))
}
