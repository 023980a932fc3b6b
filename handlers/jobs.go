package handlers

import (
	"net/http"
	"sort"
	"sync"

	"github.com/crowdflux/DeckLingo-AI/middleware"
	"github.com/crowdflux/DeckLingo-AI/models"
	"github.com/gin-gonic/gin"
)

// TaskManager tracks translations that are currently being handled,
// grouped by session. Entries live only for the duration of their request.
type TaskManager struct {
	// sessionID -> taskID -> task
	userTasks map[string]map[string]*models.TranslateTask
	mu        sync.RWMutex
}

// NewTaskManager creates an empty manager.
func NewTaskManager() *TaskManager {
	return &TaskManager{userTasks: make(map[string]map[string]*models.TranslateTask)}
}

// AddTask registers a task under sessionID.
func (tm *TaskManager) AddTask(sessionID string, task *models.TranslateTask) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.userTasks[sessionID] == nil {
		tm.userTasks[sessionID] = make(map[string]*models.TranslateTask)
	}
	tm.userTasks[sessionID][task.ID] = task
}

// GetTask returns a copy of the session's task with taskID.
func (tm *TaskManager) GetTask(sessionID, taskID string) (models.TranslateTask, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	task, found := tm.userTasks[sessionID][taskID]
	if !found {
		return models.TranslateTask{}, false
	}
	return snapshot(task), true
}

// GetUserTasks returns copies of the session's tasks, oldest first.
func (tm *TaskManager) GetUserTasks(sessionID string) []models.TranslateTask {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	userTasks := tm.userTasks[sessionID]
	tasks := make([]models.TranslateTask, 0, len(userTasks))
	for _, task := range userTasks {
		tasks = append(tasks, snapshot(task))
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks
}

// Count returns the number of in-flight tasks across all sessions.
func (tm *TaskManager) Count() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	n := 0
	for _, userTasks := range tm.userTasks {
		n += len(userTasks)
	}
	return n
}

// UpdateTask applies updateFn to the task under the write lock.
func (tm *TaskManager) UpdateTask(sessionID, taskID string, updateFn func(*models.TranslateTask)) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if task, found := tm.userTasks[sessionID][taskID]; found {
		updateFn(task)
	}
}

// RemoveTask forgets a task, and the session bucket once it is empty.
func (tm *TaskManager) RemoveTask(sessionID, taskID string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	userTasks, exists := tm.userTasks[sessionID]
	if !exists {
		return
	}
	delete(userTasks, taskID)
	if len(userTasks) == 0 {
		delete(tm.userTasks, sessionID)
	}
}

func snapshot(task *models.TranslateTask) models.TranslateTask {
	out := *task
	if task.Remote != nil {
		remote := *task.Remote
		out.Remote = &remote
	}
	return out
}

// ListJobs returns the caller's in-flight translations.
func (h *Handler) ListJobs(c *gin.Context) {
	tasks := h.tasks.GetUserTasks(middleware.GetSessionID(c))
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": len(tasks),
	})
}

// GetJob returns one of the caller's in-flight translations.
func (h *Handler) GetJob(c *gin.Context) {
	task, exists := h.tasks.GetTask(middleware.GetSessionID(c), c.Param("id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, task)
}
