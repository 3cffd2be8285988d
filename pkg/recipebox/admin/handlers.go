package admin

import (
	"net/http"
	"strconv"

	"github.com/figroll/recipebox/pkg/recipebox/auth"
	"github.com/figroll/recipebox/pkg/recipebox/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler handles admin requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// UserResponse represents user data in admin responses
type UserResponse struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Active      bool   `json:"active"`
	SystemRole  string `json:"system_role"`
	CreatedAt   string `json:"created_at"`
	RecipeCount int64  `json:"recipe_count"`
	TagCount    int64  `json:"tag_count"`
}

// UpdateUserRequest represents the request to update a user
type UpdateUserRequest struct {
	Name       *string `json:"name"`
	Active     *bool   `json:"active"`
	SystemRole *string `json:"system_role"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalUsers       int64 `json:"total_users"`
	TotalRecipes     int64 `json:"total_recipes"`
	TotalTags        int64 `json:"total_tags"`
	TotalIngredients int64 `json:"total_ingredients"`
	RecipesWithImage int64 `json:"recipes_with_image"`
	AdminUsers       int64 `json:"admin_users"`
	ActiveAPIKeys    int64 `json:"active_api_keys"`
}

func (h *Handler) userToResponse(user models.User) UserResponse {
	var recipeCount, tagCount int64
	h.db.Model(&models.Recipe{}).Where("user_id = ?", user.ID).Count(&recipeCount)
	h.db.Model(&models.Tag{}).Where("user_id = ?", user.ID).Count(&tagCount)

	return UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Active:      user.Active,
		SystemRole:  string(user.SystemRole),
		CreatedAt:   user.CreatedAt.Format("2006-01-02T15:04:05Z"),
		RecipeCount: recipeCount,
		TagCount:    tagCount,
	}
}

// ListUsers returns all users (admin only)
// @Summary List users
// @Tags admin
// @Produce json
// @Param q query string false "Search by email or name"
// @Param role query string false "Filter by system role"
// @Success 200 {array} UserResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	var users []models.User

	query := h.db.Order("created_at DESC")

	// Optional search by email or name
	if search := c.Query("q"); search != "" {
		query = query.Where("email LIKE ? OR name LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	// Optional filter by role
	if role := c.Query("role"); role != "" {
		query = query.Where("system_role = ?", role)
	}

	if err := query.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = h.userToResponse(user)
	}

	c.JSON(http.StatusOK, responses)
}

// GetUser returns a single user by ID (admin only)
// @Summary Get a user
// @Tags admin
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} UserResponse
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /admin/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, h.userToResponse(user))
}

// UpdateUser updates a user's name, active flag, or system role (admin only)
// @Summary Update a user
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body UpdateUserRequest true "Fields to update"
// @Success 200 {object} UserResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /admin/users/{id} [patch]
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.SystemRole != nil {
		role := models.SystemRole(*req.SystemRole)
		if role != models.SystemRoleAdmin && role != models.SystemRoleUser {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid system role"})
			return
		}
		user.SystemRole = role
	}

	if err := h.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	c.JSON(http.StatusOK, h.userToResponse(user))
}

// DeleteUser removes a user and all data the user owns (admin only).
// Recipes, tags, ingredients and API keys never outlive their owner.
// @Summary Delete a user
// @Tags admin
// @Param id path int true "User ID"
// @Success 204 "Deleted"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	callerID, _ := auth.GetUserID(c)
	if callerID == uint(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
		return
	}

	var user models.User
	if err := h.db.First(&user, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Recipe{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Tag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Ingredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.APIKey{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Stats returns system-wide statistics (admin only)
// @Summary System statistics
// @Tags admin
// @Produce json
// @Success 200 {object} StatsResponse
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	var stats StatsResponse

	h.db.Model(&models.User{}).Count(&stats.TotalUsers)
	h.db.Model(&models.Recipe{}).Count(&stats.TotalRecipes)
	h.db.Model(&models.Tag{}).Count(&stats.TotalTags)
	h.db.Model(&models.Ingredient{}).Count(&stats.TotalIngredients)
	h.db.Model(&models.Recipe{}).Where("image <> ''").Count(&stats.RecipesWithImage)
	h.db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&stats.AdminUsers)
	h.db.Model(&models.APIKey{}).Count(&stats.ActiveAPIKeys)

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users", h.ListUsers)
	rg.GET("/users/:id", h.GetUser)
	rg.PATCH("/users/:id", h.UpdateUser)
	rg.DELETE("/users/:id", h.DeleteUser)
	rg.GET("/stats", h.Stats)
}
