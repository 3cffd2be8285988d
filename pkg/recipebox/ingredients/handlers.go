package ingredients

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/figroll/recipebox/pkg/recipebox/auth"
	"github.com/figroll/recipebox/pkg/recipebox/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler handles ingredient-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new ingredients handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// IngredientRequest represents the request to create or rename an ingredient
type IngredientRequest struct {
	Name string `json:"name" binding:"required"`
}

// IngredientResponse represents an ingredient in API responses
type IngredientResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// nameExists reports whether the user already owns an ingredient with the
// given name, compared case-insensitively. Same non-atomic check-then-create
// window as tags.
func (h *Handler) nameExists(userID uint, name string) (bool, error) {
	var count int64
	err := h.db.Model(&models.Ingredient{}).
		Where("user_id = ? AND LOWER(name) = ?", userID, strings.ToLower(name)).
		Count(&count).Error
	return count > 0, err
}

// List returns the caller's ingredients, ordered by descending name
// @Summary List ingredients
// @Description List ingredients owned by the caller
// @Tags ingredients
// @Produce json
// @Param assigned_only query int false "When nonzero, only ingredients assigned to at least one recipe" Enums(0, 1)
// @Success 200 {array} IngredientResponse
// @Security BearerAuth
// @Router /ingredients [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	assignedOnly := false
	if v := c.Query("assigned_only"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed != 0 {
			assignedOnly = true
		}
	}

	query := h.db.Model(&models.Ingredient{}).Where("ingredients.user_id = ?", userID)
	if assignedOnly {
		query = query.
			Joins("JOIN recipe_ingredients ON recipe_ingredients.ingredient_id = ingredients.id").
			Joins("JOIN recipes ON recipes.id = recipe_ingredients.recipe_id AND recipes.deleted_at IS NULL")
	}

	var ingredients []models.Ingredient
	if err := query.Distinct("ingredients.*").Order("ingredients.name DESC").Find(&ingredients).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ingredients"})
		return
	}

	responses := make([]IngredientResponse, len(ingredients))
	for i, ingredient := range ingredients {
		responses[i] = IngredientResponse{ID: ingredient.ID, Name: ingredient.Name}
	}

	c.JSON(http.StatusOK, responses)
}

// Create creates a new ingredient for the caller
// @Summary Create an ingredient
// @Tags ingredients
// @Accept json
// @Produce json
// @Param request body IngredientRequest true "Ingredient name"
// @Success 201 {object} IngredientResponse
// @Failure 400 {object} map[string]string "Validation error or duplicate name"
// @Security BearerAuth
// @Router /ingredients [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req IngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exists, err := h.nameExists(userID, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check ingredient"})
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ingredient already exists"})
		return
	}

	ingredient := models.Ingredient{UserID: userID, Name: req.Name}
	if err := h.db.Create(&ingredient).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create ingredient"})
		return
	}

	c.JSON(http.StatusCreated, IngredientResponse{ID: ingredient.ID, Name: ingredient.Name})
}

// Update renames an owned ingredient, rejecting duplicate proposed names
// @Summary Update an ingredient
// @Tags ingredients
// @Accept json
// @Produce json
// @Param id path int true "Ingredient ID"
// @Param request body IngredientRequest true "New ingredient name"
// @Success 200 {object} IngredientResponse
// @Failure 400 {object} map[string]string "Validation error or duplicate name"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /ingredients/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ingredient not found"})
		return
	}

	var ingredient models.Ingredient
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&ingredient).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ingredient not found"})
		return
	}

	var req IngredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exists, err := h.nameExists(userID, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check ingredient"})
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ingredient with the same name already exists"})
		return
	}

	ingredient.Name = req.Name
	if err := h.db.Save(&ingredient).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update ingredient"})
		return
	}

	c.JSON(http.StatusOK, IngredientResponse{ID: ingredient.ID, Name: ingredient.Name})
}

// Delete removes an owned ingredient
// @Summary Delete an ingredient
// @Tags ingredients
// @Param id path int true "Ingredient ID"
// @Success 204 "Deleted"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /ingredients/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ingredient not found"})
		return
	}

	var ingredient models.Ingredient
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&ingredient).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ingredient not found"})
		return
	}

	if err := h.db.Delete(&ingredient).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete ingredient"})
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers ingredient routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ingredients", h.List)
	rg.POST("/ingredients", h.Create)
	rg.PUT("/ingredients/:id", h.Update)
	rg.PATCH("/ingredients/:id", h.Update)
	rg.DELETE("/ingredients/:id", h.Delete)
}
