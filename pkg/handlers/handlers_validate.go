package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ValidateInput checks a request payload's shape and category rules without
// touching crew state. Useful for intake UIs that validate as the user types.
func (h *Handler) ValidateInput(c *gin.Context) {
	var payload requestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	in, err := payload.toInput()
	if err == nil {
		err = in.Validate()
	}
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	days := int(in.End().Sub(in.StartDate).Hours()/24) + 1
	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"category": in.Category,
			"days":     days,
		},
	})
}
