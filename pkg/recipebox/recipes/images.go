package recipes

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/figroll/recipebox/pkg/recipebox/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// imageUploadDir is the directory under the media root where recipe
// images are stored.
const imageUploadDir = "uploads/recipes"

// UploadImage accepts a multipart image for an owned recipe, validates it
// decodes as an image, and stores it under the media root with a uuid name.
// A previously uploaded image for the recipe is removed.
// @Summary Upload a recipe image
// @Tags recipes
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Recipe ID"
// @Param image formData file true "Image file"
// @Success 200 {object} RecipeDetailResponse
// @Failure 400 {object} map[string]string "Invalid image"
// @Failure 404 {object} map[string]string "Not found"
// @Security BearerAuth
// @Router /recipes/{id}/upload-image [post]
func (h *Handler) UploadImage(c *gin.Context) {
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

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Image file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image file"})
		return
	}
	defer file.Close()

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image file"})
		return
	}

	relPath := filepath.Join(imageUploadDir, uuid.New().String()+".jpg")
	absPath := filepath.Join(h.mediaRoot, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
		return
	}
	if err := imaging.Save(img, absPath, imaging.JPEGQuality(90)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
		return
	}

	// Replace any previous upload for this recipe
	if recipe.Image != "" {
		os.Remove(filepath.Join(h.mediaRoot, recipe.Image))
	}

	recipe.Image = filepath.ToSlash(relPath)
	if err := h.db.Model(&recipe).Update("image", recipe.Image).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update recipe"})
		return
	}

	c.JSON(http.StatusOK, recipeToDetailResponse(recipe))
}
