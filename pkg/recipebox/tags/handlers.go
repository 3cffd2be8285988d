package tags

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/figroll/recipebox/pkg/recipebox/auth"
	"github.com/figroll/recipebox/pkg/recipebox/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler handles tag-related requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new tags handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// TagRequest represents the request to create or rename a tag
type TagRequest struct {
	Name string `json:"name" binding:"required"`
}

// TagResponse represents a tag in API responses
type TagResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// nameExists reports whether the user already owns a tag with the given
// name, compared case-insensitively. The check and a following create are
// separate statements; concurrent requests can both pass the check.
func (h *Handler) nameExists(userID uint, name string) (bool, error) {
	var count int64
	err := h.db.Model(&models.Tag{}).
		Where("user_id = ? AND LOWER(name) = ?", userID, strings.ToLower(name)).
		Count(&count).Error
	return count > 0, err
}

// List returns the caller's tags, ordered by descending name
// @Summary List tags
// @Description List tags owned by the caller
// @Tags tags
// @Produce json
// @Param assigned_only query int false "When nonzero, only tags assigned to at least one recipe" Enums(0, 1)
// @Success 200 {array} TagResponse
// @Security BearerAuth
// @Router /tags [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	assignedOnly := false
	if v := c.Query("assigned_only"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed != 0 {
			assignedOnly = true
		}
	}

	query := h.db.Model(&models.Tag{}).Where("tags.user_id = ?", userID)
	if assignedOnly {
		query = query.
			Joins("JOIN recipe_tags ON recipe_tags.tag_id = tags.id").
			Joins("JOIN recipes ON recipes.id = recipe_tags.recipe_id AND recipes.deleted_at IS NULL")
	}

	var tags []models.Tag
	if err := query.Distinct("tags.*").Order("tags.name DESC").Find(&tags).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tags"})
		return
	}

	responses := make([]TagResponse, len(tags))
	for i, tag := range tags {
		responses[i] = TagResponse{ID: tag.ID, Name: tag.Name}
	}

	c.JSON(http.StatusOK, responses)
}

// Create creates a new tag for the caller
// @Summary Create a tag
// @Tags tags
// @Accept json
// @Produce json
// @Param request body TagRequest true "Tag name"
// @Success 201 {object} TagResponse
// @Failure 400 {object} map[string]string "Validation error or duplicate name"
// @Security BearerAuth
// @Router /tags [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exists, err := h.nameExists(userID, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check tag"})
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tag already exists"})
		return
	}

	tag := models.Tag{UserID: userID, Name: req.Name}
	if err := h.db.Create(&tag).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create tag"})
		return
	}

	c.JSON(http.StatusCreated, TagResponse{ID: tag.ID, Name: tag.Name})
}

// Update renames an owned tag. The duplicate check runs against the
// proposed name before anything is saved.
// @Summary Update a tag
// @Tags tags
// @Accept json
// @Produce json
// @Param id path int true "Tag ID"
// @Param request body TagRequest true "New tag name"
// @Success 200 {object} TagResponse
// @Failure 400 {object} map[string]string "Validation error or duplicate name"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /tags/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	var tag models.Tag
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&tag).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	var req TagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exists, err := h.nameExists(userID, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check tag"})
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Tag with the same name already exists"})
		return
	}

	tag.Name = req.Name
	if err := h.db.Save(&tag).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update tag"})
		return
	}

	c.JSON(http.StatusOK, TagResponse{ID: tag.ID, Name: tag.Name})
}

// Delete removes an owned tag
// @Summary Delete a tag
// @Tags tags
// @Param id path int true "Tag ID"
// @Success 204 "Deleted"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /tags/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	var tag models.Tag
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&tag).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tag not found"})
		return
	}

	if err := h.db.Delete(&tag).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete tag"})
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers tag routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tags", h.List)
	rg.POST("/tags", h.Create)
	rg.PUT("/tags/:id", h.Update)
	rg.PATCH("/tags/:id", h.Update)
	rg.DELETE("/tags/:id", h.Delete)
}
