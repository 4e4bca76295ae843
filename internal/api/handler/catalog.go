package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/illenko/opspages/internal/api/helpers"
	"github.com/illenko/opspages/internal/models"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	List(ctx context.Context, opts models.ListOptions) ([]models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, id int64, u models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

type UsersHandler struct {
	users UserStore
}

func NewUsersHandler(users UserStore) *UsersHandler {
	return &UsersHandler{users: users}
}

type userRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,simple_email"`
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context(), listOptions(r))
	if err != nil {
		helpers.WriteServiceError(w, r, err, "User not found")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	helpers.WriteData(w, http.StatusOK, users)
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "User not found")
		return
	}
	if user == nil {
		helpers.WriteError(w, http.StatusNotFound, "User not found")
		return
	}
	helpers.WriteData(w, http.StatusOK, user)
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := helpers.Validate(req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.Create(r.Context(), &models.User{Name: req.Name, Email: req.Email})
	if err != nil {
		helpers.WriteServiceError(w, r, err, "User not found")
		return
	}
	helpers.WriteData(w, http.StatusCreated, user)
}

func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var patch models.UserUpdate
	if err := helpers.DecodeJSON(w, r, &patch); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		helpers.WriteError(w, http.StatusBadRequest, "name must not be empty")
		return
	}
	if patch.Email != nil && !helpers.ValidEmail(*patch.Email) {
		helpers.WriteError(w, http.StatusBadRequest, "email must be a valid email address")
		return
	}

	user, err := h.users.Update(r.Context(), id, patch)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "User not found")
		return
	}
	helpers.WriteData(w, http.StatusOK, user)
}

func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		helpers.WriteServiceError(w, r, err, "User not found")
		return
	}
	helpers.WriteMessage(w, http.StatusOK, "User deleted successfully")
}

type ProductStore interface {
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	List(ctx context.Context, category *string, opts models.ListOptions) ([]models.Product, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Update(ctx context.Context, id int64, u models.ProductUpdate) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
}

type ProductsHandler struct {
	products ProductStore
}

func NewProductsHandler(products ProductStore) *ProductsHandler {
	return &ProductsHandler{products: products}
}

type productRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Category    *string  `json:"category"`
}

func (h *ProductsHandler) List(w http.ResponseWriter, r *http.Request) {
	var category *string
	if c := r.URL.Query().Get("category"); c != "" {
		category = &c
	}

	products, err := h.products.List(r.Context(), category, listOptions(r))
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Product not found")
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	helpers.WriteData(w, http.StatusOK, products)
}

func (h *ProductsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Product not found")
		return
	}
	if product == nil {
		helpers.WriteError(w, http.StatusNotFound, "Product not found")
		return
	}
	helpers.WriteData(w, http.StatusOK, product)
}

func (h *ProductsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := helpers.Validate(req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.products.Create(r.Context(), &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Category:    req.Category,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Product not found")
		return
	}
	helpers.WriteData(w, http.StatusCreated, product)
}

func (h *ProductsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var patch models.ProductUpdate
	if err := helpers.DecodeJSON(w, r, &patch); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Price != nil && *patch.Price < 0 {
		helpers.WriteError(w, http.StatusBadRequest, "price must be at least 0")
		return
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		helpers.WriteError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	product, err := h.products.Update(r.Context(), id, patch)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Product not found")
		return
	}
	helpers.WriteData(w, http.StatusOK, product)
}

func (h *ProductsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.products.Delete(r.Context(), id); err != nil {
		helpers.WriteServiceError(w, r, err, "Product not found")
		return
	}
	helpers.WriteMessage(w, http.StatusOK, "Product deleted successfully")
}

type ActionItemStore interface {
	Create(ctx context.Context, a *models.ActionItem) (*models.ActionItem, error)
	List(ctx context.Context, metricID *int64, opts models.ListOptions) ([]models.ActionItem, error)
	Get(ctx context.Context, id int64) (*models.ActionItem, error)
	Update(ctx context.Context, id int64, u models.ActionItemUpdate) (*models.ActionItem, error)
	Delete(ctx context.Context, id int64) error
}

type ActionItemsHandler struct {
	items ActionItemStore
}

func NewActionItemsHandler(items ActionItemStore) *ActionItemsHandler {
	return &ActionItemsHandler{items: items}
}

type actionItemRequest struct {
	JiraLink *string `json:"jira_link" validate:"omitempty,url"`
	MetricID int64   `json:"metric_id" validate:"required,gt=0"`
}

func (h *ActionItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	metricID, err := helpers.ParseOptionalInt64(r, "metric_id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.items.List(r.Context(), metricID, listOptions(r))
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Action item not found")
		return
	}
	if items == nil {
		items = []models.ActionItem{}
	}
	helpers.WriteData(w, http.StatusOK, items)
}

func (h *ActionItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid action item id")
		return
	}

	item, err := h.items.Get(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Action item not found")
		return
	}
	if item == nil {
		helpers.WriteError(w, http.StatusNotFound, "Action item not found")
		return
	}
	helpers.WriteData(w, http.StatusOK, item)
}

func (h *ActionItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req actionItemRequest
	if err := helpers.DecodeJSON(w, r, &req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := helpers.Validate(req); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.items.Create(r.Context(), &models.ActionItem{JiraLink: req.JiraLink, MetricID: req.MetricID})
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Action item not found")
		return
	}
	helpers.WriteData(w, http.StatusCreated, item)
}

func (h *ActionItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid action item id")
		return
	}

	var patch models.ActionItemUpdate
	if err := helpers.DecodeJSON(w, r, &patch); err != nil {
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.MetricID != nil && *patch.MetricID <= 0 {
		helpers.WriteError(w, http.StatusBadRequest, "metric_id must be greater than 0")
		return
	}

	item, err := h.items.Update(r.Context(), id, patch)
	if err != nil {
		helpers.WriteServiceError(w, r, err, "Action item not found")
		return
	}
	helpers.WriteData(w, http.StatusOK, item)
}

func (h *ActionItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := helpers.PathID(r, "id")
	if err != nil {
		helpers.WriteError(w, http.StatusBadRequest, "invalid action item id")
		return
	}
	if err := h.items.Delete(r.Context(), id); err != nil {
		helpers.WriteServiceError(w, r, err, "Action item not found")
		return
	}
	helpers.WriteMessage(w, http.StatusOK, "Action item deleted successfully")
}

func listOptions(r *http.Request) models.ListOptions {
	return models.ListOptions{
		Limit:  helpers.ParseIntParam(r, "limit", 0),
		Offset: helpers.ParseIntParam(r, "offset", 0),
	}
}
