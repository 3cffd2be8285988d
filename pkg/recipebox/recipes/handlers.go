package recipes

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/figroll/recipebox/pkg/recipebox/auth"
	"github.com/figroll/recipebox/pkg/recipebox/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Handler handles recipe-related requests
type Handler struct {
	db        *gorm.DB
	mediaRoot string
}

// NewHandler creates a new recipes handler. Uploaded images are stored
// under mediaRoot.
func NewHandler(db *gorm.DB, mediaRoot string) *Handler {
	return &Handler{db: db, mediaRoot: mediaRoot}
}

// AttrRequest represents a nested tag or ingredient referenced by name
type AttrRequest struct {
	Name string `json:"name" binding:"required"`
}

// AttrResponse represents a tag or ingredient in recipe responses
type AttrResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// CreateRecipeRequest represents the request to create a recipe.
// PUT replacement binds the same shape.
type CreateRecipeRequest struct {
	Title       string           `json:"title" binding:"required"`
	TimeMinutes *int             `json:"time_minutes" binding:"required,gte=0"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Link        string           `json:"link" binding:"omitempty,url"`
	Description string           `json:"description"`
	Tags        []AttrRequest    `json:"tags"`
	Ingredients []AttrRequest    `json:"ingredients"`
}

// UpdateRecipeRequest represents the request to update a recipe.
// Every field is optional; nested tags/ingredients, when present,
// replace the current association set.
type UpdateRecipeRequest struct {
	Title       *string          `json:"title"`
	TimeMinutes *int             `json:"time_minutes" binding:"omitempty,gte=0"`
	Price       *decimal.Decimal `json:"price"`
	Link        *string          `json:"link" binding:"omitempty,url"`
	Description *string          `json:"description"`
	Tags        []AttrRequest    `json:"tags"`
	Ingredients []AttrRequest    `json:"ingredients"`
}

// RecipeResponse is the list projection of a recipe
type RecipeResponse struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	TimeMinutes int             `json:"time_minutes"`
	Price       decimal.Decimal `json:"price"`
	Link        string          `json:"link"`
}

// RecipeDetailResponse adds the detail-only fields to the list projection
type RecipeDetailResponse struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	TimeMinutes int             `json:"time_minutes"`
	Price       decimal.Decimal `json:"price"`
	Link        string          `json:"link"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Tags        []AttrResponse  `json:"tags"`
	Ingredients []AttrResponse  `json:"ingredients"`
}

func recipeToResponse(recipe models.Recipe) RecipeResponse {
	return RecipeResponse{
		ID:          recipe.ID,
		Title:       recipe.Title,
		TimeMinutes: recipe.TimeMinutes,
		Price:       recipe.Price,
		Link:        recipe.Link,
	}
}

func recipeToDetailResponse(recipe models.Recipe) RecipeDetailResponse {
	tags := make([]AttrResponse, len(recipe.Tags))
	for i, t := range recipe.Tags {
		tags[i] = AttrResponse{ID: t.ID, Name: t.Name}
	}
	ingredients := make([]AttrResponse, len(recipe.Ingredients))
	for i, ing := range recipe.Ingredients {
		ingredients[i] = AttrResponse{ID: ing.ID, Name: ing.Name}
	}

	image := ""
	if recipe.Image != "" {
		image = "/media/" + recipe.Image
	}

	return RecipeDetailResponse{
		ID:          recipe.ID,
		Title:       recipe.Title,
		TimeMinutes: recipe.TimeMinutes,
		Price:       recipe.Price,
		Link:        recipe.Link,
		Description: recipe.Description,
		Image:       image,
		Tags:        tags,
		Ingredients: ingredients,
	}
}

// parseIDList converts a comma-separated list of ids to a slice of uints
func parseIDList(csv string) ([]uint, error) {
	parts := strings.Split(csv, ",")
	ids := make([]uint, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// getRecipe fetches a recipe by id scoped to the owner, with associations loaded.
// Missing and not-owned both come back as gorm.ErrRecordNotFound.
func (h *Handler) getRecipe(userID uint, id uint) (models.Recipe, error) {
	var recipe models.Recipe
	err := h.db.Preload("Tags").Preload("Ingredients").
		Where("id = ? AND user_id = ?", id, userID).
		First(&recipe).Error
	return recipe, err
}

// getOrCreateTags resolves nested tag names to rows owned by the user,
// creating any that don't exist yet. Matching is case-insensitive.
func getOrCreateTags(tx *gorm.DB, userID uint, attrs []AttrRequest) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(attrs))
	for _, attr := range attrs {
		var tag models.Tag
		err := tx.Where("user_id = ? AND LOWER(name) = ?", userID, strings.ToLower(attr.Name)).
			First(&tag).Error
		if err != nil {
			tag = models.Tag{UserID: userID, Name: attr.Name}
			if err := tx.Create(&tag).Error; err != nil {
				return nil, err
			}
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// getOrCreateIngredients resolves nested ingredient names, same rules as tags
func getOrCreateIngredients(tx *gorm.DB, userID uint, attrs []AttrRequest) ([]models.Ingredient, error) {
	ingredients := make([]models.Ingredient, 0, len(attrs))
	for _, attr := range attrs {
		var ingredient models.Ingredient
		err := tx.Where("user_id = ? AND LOWER(name) = ?", userID, strings.ToLower(attr.Name)).
			First(&ingredient).Error
		if err != nil {
			ingredient = models.Ingredient{UserID: userID, Name: attr.Name}
			if err := tx.Create(&ingredient).Error; err != nil {
				return nil, err
			}
		}
		ingredients = append(ingredients, ingredient)
	}
	return ingredients, nil
}

// List returns the caller's recipes, most recent first
// @Summary List recipes
// @Description List recipes owned by the caller, optionally filtered by tag and ingredient ids
// @Tags recipes
// @Produce json
// @Param tags query string false "Comma-separated list of tag IDs to filter"
// @Param ingredients query string false "Comma-separated list of ingredient IDs to filter"
// @Success 200 {array} RecipeResponse
// @Failure 400 {object} map[string]string "Invalid filter"
// @Security BearerAuth
// @Router /recipes [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	query := h.db.Model(&models.Recipe{}).Where("recipes.user_id = ?", userID)

	if tagsParam := c.Query("tags"); tagsParam != "" {
		tagIDs, err := parseIDList(tagsParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tags filter"})
			return
		}
		query = query.Joins("JOIN recipe_tags ON recipe_tags.recipe_id = recipes.id").
			Where("recipe_tags.tag_id IN ?", tagIDs)
	}

	if ingredientsParam := c.Query("ingredients"); ingredientsParam != "" {
		ingredientIDs, err := parseIDList(ingredientsParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ingredients filter"})
			return
		}
		query = query.Joins("JOIN recipe_ingredients ON recipe_ingredients.recipe_id = recipes.id").
			Where("recipe_ingredients.ingredient_id IN ?", ingredientIDs)
	}

	var recipes []models.Recipe
	if err := query.Distinct("recipes.*").Order("recipes.id DESC").Find(&recipes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipes"})
		return
	}

	responses := make([]RecipeResponse, len(recipes))
	for i, recipe := range recipes {
		responses[i] = recipeToResponse(recipe)
	}

	c.JSON(http.StatusOK, responses)
}

// Get returns the full detail of an owned recipe
// @Summary Get a recipe
// @Tags recipes
// @Produce json
// @Param id path int true "Recipe ID"
// @Success 200 {object} RecipeDetailResponse
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /recipes/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	recipe, err := h.getRecipe(userID, uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	c.JSON(http.StatusOK, recipeToDetailResponse(recipe))
}

// Create creates a new recipe for the caller
// @Summary Create a recipe
// @Description Create a recipe. Nested tags and ingredients are matched by name (case-insensitive) against the caller's existing entries and created when missing.
// @Tags recipes
// @Accept json
// @Produce json
// @Param request body CreateRecipeRequest true "Recipe details"
// @Success 201 {object} RecipeDetailResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /recipes [post]
func (h *Handler) Create(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Price.Sign() < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price must not be negative"})
		return
	}

	// Owner always comes from the authenticated identity, never the payload
	recipe := models.Recipe{
		UserID:      userID,
		Title:       req.Title,
		TimeMinutes: *req.TimeMinutes,
		Price:       *req.Price,
		Link:        req.Link,
		Description: req.Description,
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		tags, err := getOrCreateTags(tx, userID, req.Tags)
		if err != nil {
			return err
		}
		ingredients, err := getOrCreateIngredients(tx, userID, req.Ingredients)
		if err != nil {
			return err
		}

		recipe.Tags = tags
		recipe.Ingredients = ingredients
		return tx.Create(&recipe).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create recipe"})
		return
	}

	c.JSON(http.StatusCreated, recipeToDetailResponse(recipe))
}

// Replace overwrites an owned recipe with a full representation. The
// required fields are the same as on create; omitted optional fields
// (link, description) are cleared. Nested collections, when present,
// replace the association set.
// @Summary Replace a recipe
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param request body CreateRecipeRequest true "Full recipe details"
// @Success 200 {object} RecipeDetailResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /recipes/{id} [put]
func (h *Handler) Replace(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	recipe, err := h.getRecipe(userID, uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	var req CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Price.Sign() < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price must not be negative"})
		return
	}

	recipe.Title = req.Title
	recipe.TimeMinutes = *req.TimeMinutes
	recipe.Price = *req.Price
	recipe.Link = req.Link
	recipe.Description = req.Description

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&recipe).Error; err != nil {
			return err
		}

		if req.Tags != nil {
			tags, err := getOrCreateTags(tx, userID, req.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(&recipe).Association("Tags").Replace(tags); err != nil {
				return err
			}
			recipe.Tags = tags
		}
		if req.Ingredients != nil {
			ingredients, err := getOrCreateIngredients(tx, userID, req.Ingredients)
			if err != nil {
				return err
			}
			if err := tx.Model(&recipe).Association("Ingredients").Replace(ingredients); err != nil {
				return err
			}
			recipe.Ingredients = ingredients
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update recipe"})
		return
	}

	c.JSON(http.StatusOK, recipeToDetailResponse(recipe))
}

// Update applies a partial update to an owned recipe; absent fields are
// left unchanged.
// @Summary Update a recipe
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path int true "Recipe ID"
// @Param request body UpdateRecipeRequest true "Fields to update"
// @Success 200 {object} RecipeDetailResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /recipes/{id} [patch]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	recipe, err := h.getRecipe(userID, uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	var req UpdateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Title != nil {
		if *req.Title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Title must not be empty"})
			return
		}
		recipe.Title = *req.Title
	}
	if req.TimeMinutes != nil {
		recipe.TimeMinutes = *req.TimeMinutes
	}
	if req.Price != nil {
		if req.Price.Sign() < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Price must not be negative"})
			return
		}
		recipe.Price = *req.Price
	}
	if req.Link != nil {
		recipe.Link = *req.Link
	}
	if req.Description != nil {
		recipe.Description = *req.Description
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&recipe).Error; err != nil {
			return err
		}

		if req.Tags != nil {
			tags, err := getOrCreateTags(tx, userID, req.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(&recipe).Association("Tags").Replace(tags); err != nil {
				return err
			}
			recipe.Tags = tags
		}
		if req.Ingredients != nil {
			ingredients, err := getOrCreateIngredients(tx, userID, req.Ingredients)
			if err != nil {
				return err
			}
			if err := tx.Model(&recipe).Association("Ingredients").Replace(ingredients); err != nil {
				return err
			}
			recipe.Ingredients = ingredients
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update recipe"})
		return
	}

	c.JSON(http.StatusOK, recipeToDetailResponse(recipe))
}

// Delete removes an owned recipe. The tag/ingredient associations are
// detached; the tags and ingredients themselves survive.
// @Summary Delete a recipe
// @Tags recipes
// @Param id path int true "Recipe ID"
// @Success 204 "Deleted"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /recipes/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	recipe, err := h.getRecipe(userID, uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Ingredients").Clear(); err != nil {
			return err
		}
		return tx.Delete(&recipe).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete recipe"})
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers recipe routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/recipes", h.List)
	rg.POST("/recipes", h.Create)
	rg.GET("/recipes/:id", h.Get)
	rg.PUT("/recipes/:id", h.Replace)
	rg.PATCH("/recipes/:id", h.Update)
	rg.DELETE("/recipes/:id", h.Delete)
	rg.POST("/recipes/:id/upload-image", h.UploadImage)
}
