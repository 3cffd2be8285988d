package importexport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/figroll/recipebox/pkg/recipebox/auth"
	"github.com/figroll/recipebox/pkg/recipebox/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Handler handles import/export requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new import/export handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// RecipeDocument represents one recipe in the import/export format.
// Tags and ingredients travel as plain names; prices as fixed-point strings.
type RecipeDocument struct {
	Title       string   `json:"title"`
	TimeMinutes int      `json:"time_minutes"`
	Price       string   `json:"price"`
	Link        string   `json:"link,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
}

// ImportRequest represents an import request
type ImportRequest struct {
	Recipes []RecipeDocument `json:"recipes" binding:"required"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// findOrCreateTag resolves a tag name to a row owned by the user,
// case-insensitively, creating it when missing
func findOrCreateTag(tx *gorm.DB, userID uint, name string) (models.Tag, error) {
	var tag models.Tag
	err := tx.Where("user_id = ? AND LOWER(name) = ?", userID, strings.ToLower(name)).First(&tag).Error
	if err == nil {
		return tag, nil
	}
	tag = models.Tag{UserID: userID, Name: name}
	return tag, tx.Create(&tag).Error
}

// findOrCreateIngredient resolves an ingredient name, same rules as tags
func findOrCreateIngredient(tx *gorm.DB, userID uint, name string) (models.Ingredient, error) {
	var ingredient models.Ingredient
	err := tx.Where("user_id = ? AND LOWER(name) = ?", userID, strings.ToLower(name)).First(&ingredient).Error
	if err == nil {
		return ingredient, nil
	}
	ingredient = models.Ingredient{UserID: userID, Name: name}
	return ingredient, tx.Create(&ingredient).Error
}

// validateDocument checks a recipe document and returns its parsed price
func validateDocument(doc RecipeDocument) (decimal.Decimal, error) {
	if doc.Title == "" {
		return decimal.Decimal{}, fmt.Errorf("title is required")
	}
	if doc.TimeMinutes < 0 {
		return decimal.Decimal{}, fmt.Errorf("time_minutes must not be negative")
	}
	price, err := decimal.NewFromString(doc.Price)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid price %q", doc.Price)
	}
	if price.Sign() < 0 {
		return decimal.Decimal{}, fmt.Errorf("price must not be negative")
	}
	return price, nil
}

// Export returns all of the caller's recipes as documents
// @Summary Export recipes
// @Description Export the caller's recipes, including tag and ingredient names
// @Tags import-export
// @Produce json
// @Success 200 {array} RecipeDocument
// @Security BearerAuth
// @Router /export/recipes [get]
func (h *Handler) Export(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var recipes []models.Recipe
	err := h.db.Preload("Tags").Preload("Ingredients").
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&recipes).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipes"})
		return
	}

	docs := make([]RecipeDocument, len(recipes))
	for i, recipe := range recipes {
		tags := make([]string, len(recipe.Tags))
		for j, t := range recipe.Tags {
			tags[j] = t.Name
		}
		ingredients := make([]string, len(recipe.Ingredients))
		for j, ing := range recipe.Ingredients {
			ingredients[j] = ing.Name
		}
		docs[i] = RecipeDocument{
			Title:       recipe.Title,
			TimeMinutes: recipe.TimeMinutes,
			Price:       recipe.Price.StringFixed(2),
			Link:        recipe.Link,
			Description: recipe.Description,
			Tags:        tags,
			Ingredients: ingredients,
		}
	}

	c.JSON(http.StatusOK, docs)
}

// Import creates recipes from documents. Documents that fail validation
// are skipped and reported; the rest are imported.
// @Summary Import recipes
// @Tags import-export
// @Accept json
// @Produce json
// @Param request body ImportRequest true "Recipes to import"
// @Success 200 {object} ImportResult
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /import/recipes [post]
func (h *Handler) Import(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := ImportResult{}
	for i, doc := range req.Recipes {
		price, err := validateDocument(doc)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("recipe %d: %v", i, err))
			continue
		}

		recipe := models.Recipe{
			UserID:      userID,
			Title:       doc.Title,
			TimeMinutes: doc.TimeMinutes,
			Price:       price,
			Link:        doc.Link,
			Description: doc.Description,
		}

		err = h.db.Transaction(func(tx *gorm.DB) error {
			for _, name := range doc.Tags {
				if name == "" {
					continue
				}
				tag, err := findOrCreateTag(tx, userID, name)
				if err != nil {
					return err
				}
				recipe.Tags = append(recipe.Tags, tag)
			}
			for _, name := range doc.Ingredients {
				if name == "" {
					continue
				}
				ingredient, err := findOrCreateIngredient(tx, userID, name)
				if err != nil {
					return err
				}
				recipe.Ingredients = append(recipe.Ingredients, ingredient)
			}
			return tx.Create(&recipe).Error
		})
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("recipe %d: failed to save", i))
			continue
		}

		result.Imported++
	}

	c.JSON(http.StatusOK, result)
}

// RegisterRoutes registers import/export routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/export/recipes", h.Export)
	rg.POST("/import/recipes", h.Import)
}
