package web

import (
	"context"
	"errors"
	"net/url"

	"github.com/example/task-manager/domain/policy"
	domain "github.com/example/task-manager/domain/task"
	"github.com/example/task-manager/domain/validation"
	"github.com/example/task-manager/modules/task"
	"github.com/gofiber/fiber/v2"
)

const tasksURL = "/tasks"

// choices returns the options of the task form and filter selects.
func (h *Handlers) choices(ctx context.Context) (fiber.Map, error) {
	statuses, err := h.svc.Statuses.List(ctx)
	if err != nil {
		return nil, err
	}
	users, err := h.svc.Users.List(ctx)
	if err != nil {
		return nil, err
	}
	labels, err := h.svc.Labels.List(ctx)
	if err != nil {
		return nil, err
	}
	return fiber.Map{"choices": fiber.Map{
		"statuses":  statuses,
		"executors": users,
		"labels":    labels,
	}}, nil
}

// taskForm is the form view of a stored task.
func taskForm(t *domain.Task) domain.Input {
	in := domain.Input{
		Name:        t.Name,
		Description: t.Description,
		StatusID:    t.StatusID,
		LabelIDs:    t.LabelIDs(),
	}
	if t.ExecutorID != nil {
		in.ExecutorID = *t.ExecutorID
	}
	return in
}

// ListTasks handles GET /tasks.
func (h *Handlers) ListTasks(c *fiber.Ctx) error {
	ctx := c.UserContext()
	data, err := h.choices(ctx)
	if err != nil {
		return h.fail(c, err, "/")
	}

	query := queryValues(c)
	data["filter"] = query

	f, err := domain.ParseFilter(query, actorOf(c).ID)
	if err != nil {
		fe, ok := validation.AsErrors(err)
		if !ok {
			return h.fail(c, err, "/")
		}
		data["errors"] = fe
		data["tasks"] = []domain.Task{}
		return h.render(c, "tasks/list", data)
	}

	tasks, err := h.svc.Tasks.List(ctx, f)
	if err != nil {
		return h.fail(c, err, "/")
	}
	data["tasks"] = tasks
	return h.render(c, "tasks/list", data)
}

// queryValues returns the query string arguments. Undecodable escapes are
// kept verbatim so the filter reports them against their field.
func queryValues(c *fiber.Ctx) url.Values {
	q := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		q.Add(string(key), string(value))
	})
	return q
}

func (h *Handlers) loadTask(c *fiber.Ctx) (*domain.Task, bool, error) {
	id, valid := paramID(c)
	if !valid {
		return nil, false, notFound(c)
	}
	t, err := h.svc.Tasks.Get(c.UserContext(), id)
	if err != nil {
		return nil, false, h.fail(c, err, tasksURL)
	}
	return t, true, nil
}

// ShowTask handles GET /tasks/:id.
func (h *Handlers) ShowTask(c *fiber.Ctx) error {
	t, ok, err := h.loadTask(c)
	if !ok {
		return err
	}
	return h.render(c, "tasks/detail", fiber.Map{"object": t})
}

// CreateTaskForm handles GET /tasks/create.
func (h *Handlers) CreateTaskForm(c *fiber.Ctx) error {
	data, err := h.choices(c.UserContext())
	if err != nil {
		return h.fail(c, err, tasksURL)
	}
	data["form"] = domain.Input{}
	return h.render(c, "tasks/create", data)
}

// CreateTask handles POST /tasks/create. The author is always the signed-in user.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	ctx := c.UserContext()
	data, err := h.choices(ctx)
	if err != nil {
		return h.fail(c, err, tasksURL)
	}

	var in domain.Input
	if err := c.BodyParser(&in); err != nil {
		return h.renderForm(c, "tasks/create", in, unreadableChoiceForm(c, taskChoiceFields...), data)
	}
	if _, err := h.svc.Tasks.Create(ctx, actorOf(c), &in); err != nil {
		return h.failForm(c, err, "tasks/create", in, data, tasksURL)
	}
	return h.redirect(c, tasksURL, LevelSuccess, msgTaskCreated)
}

// UpdateTaskForm handles GET /tasks/:id/update.
func (h *Handlers) UpdateTaskForm(c *fiber.Ctx) error {
	t, ok, err := h.loadTask(c)
	if !ok {
		return err
	}
	data, err := h.choices(c.UserContext())
	if err != nil {
		return h.fail(c, err, tasksURL)
	}
	data["object"] = t
	data["form"] = taskForm(t)
	return h.render(c, "tasks/update", data)
}

// UpdateTask handles POST /tasks/:id/update.
func (h *Handlers) UpdateTask(c *fiber.Ctx) error {
	t, ok, err := h.loadTask(c)
	if !ok {
		return err
	}
	ctx := c.UserContext()
	data, err := h.choices(ctx)
	if err != nil {
		return h.fail(c, err, tasksURL)
	}
	data["object"] = t

	var in domain.Input
	if err := c.BodyParser(&in); err != nil {
		return h.renderForm(c, "tasks/update", taskForm(t), unreadableChoiceForm(c, taskChoiceFields...), data)
	}
	if _, err := h.svc.Tasks.Update(ctx, actorOf(c), t.ID, &in); err != nil {
		return h.failForm(c, err, "tasks/update", in, data, tasksURL)
	}
	return h.redirect(c, tasksURL, LevelSuccess, msgTaskChanged)
}

// DeleteTaskForm handles GET /tasks/:id/delete.
func (h *Handlers) DeleteTaskForm(c *fiber.Ctx) error {
	t, ok, err := h.loadTask(c)
	if !ok {
		return err
	}
	if !policy.CanDeleteTask(actorOf(c), t.AuthorID) {
		return h.redirect(c, tasksURL, LevelError, msgTaskNotAuthor)
	}
	return h.render(c, "tasks/delete", fiber.Map{"object": t})
}

// DeleteTask handles POST /tasks/:id/delete.
func (h *Handlers) DeleteTask(c *fiber.Ctx) error {
	id, valid := paramID(c)
	if !valid {
		return notFound(c)
	}

	if err := h.svc.Tasks.Delete(c.UserContext(), actorOf(c), id); err != nil {
		if errors.Is(err, task.ErrNotAuthor) {
			return h.redirect(c, tasksURL, LevelError, msgTaskNotAuthor)
		}
		return h.fail(c, err, tasksURL)
	}
	return h.redirect(c, tasksURL, LevelSuccess, msgTaskDeleted)
}
