package queue

import "github.com/athulya-anil/axon-render/pkg/models"

// TaskQueue keeps tasks in submission order with an id index.
//
// TaskQueue does no locking of its own; the owning scheduler serializes
// every call under its mutex.
type TaskQueue struct {
	order []*models.Task
	index map[string]*models.Task
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		index: make(map[string]*models.Task),
	}
}

// Add appends a task. It reports false when the id is already present.
func (q *TaskQueue) Add(task *models.Task) bool {
	if _, exists := q.index[task.ID]; exists {
		return false
	}
	q.order = append(q.order, task)
	q.index[task.ID] = task
	return true
}

// Get returns the stored task, or nil.
func (q *TaskQueue) Get(taskID string) *models.Task {
	return q.index[taskID]
}

// Each visits tasks in submission order until fn returns false.
func (q *TaskQueue) Each(fn func(*models.Task) bool) {
	for _, task := range q.order {
		if !fn(task) {
			return
		}
	}
}

// Find returns the first task in submission order matching pred.
func (q *TaskQueue) Find(pred func(*models.Task) bool) *models.Task {
	var found *models.Task
	q.Each(func(task *models.Task) bool {
		if pred(task) {
			found = task
			return false
		}
		return true
	})
	return found
}

// Len returns the number of tasks ever submitted.
func (q *TaskQueue) Len() int {
	return len(q.order)
}

// CountByStatus tallies tasks per status.
func (q *TaskQueue) CountByStatus() map[models.TaskStatus]int {
	counts := make(map[models.TaskStatus]int)
	for _, task := range q.order {
		counts[task.Status]++
	}
	return counts
}
