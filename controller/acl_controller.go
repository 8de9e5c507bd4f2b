// controller/acl_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	guardian_errors "github.com/dev-mohitbeniwal/guardian/errors"
	"github.com/dev-mohitbeniwal/guardian/model"
	"github.com/dev-mohitbeniwal/guardian/service"
	"github.com/dev-mohitbeniwal/guardian/store"
	"github.com/dev-mohitbeniwal/guardian/util"
	helper_util "github.com/dev-mohitbeniwal/guardian/util/helper"
)

type ACLController struct {
	aclService service.IACLService
}

func NewACLController(aclService service.IACLService) *ACLController {
	return &ACLController{
		aclService: aclService,
	}
}

// RegisterRoutes registers the API routes
func (ac *ACLController) RegisterRoutes(r *gin.RouterGroup) {
	acls := r.Group("/acls")
	{
		acls.POST("/search", ac.SearchACLs)
		acls.GET("/:objectType/:objectId/:subjectType/:subjectId", ac.GetACLs)
		acls.POST("/:objectType/:objectId/:subjectType/:subjectId/:permission", ac.SetACL)
		acls.DELETE("/:objectType/:objectId/:subjectType/:subjectId/:permission", ac.DeleteACL)
	}
}

// GetACLs returns the entries for the exact (object, subject) pair.
func (ac *ACLController) GetACLs(c *gin.Context) {
	object, subject, ok := ac.pairFromPath(c)
	if !ok {
		return
	}

	entries, err := ac.aclService.GetACLs(c, object, subject)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve ACL entries", err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// SetACL grants a permission: 200 if the entry was created, 304 if the
// identical entry already existed.
func (ac *ACLController) SetACL(c *gin.Context) {
	object, subject, ok := ac.pairFromPath(c)
	if !ok {
		return
	}

	entry, err := model.NewACLEntry(object, subject, c.Param("permission"))
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid ACL entry", err)
		return
	}

	// The request body repeats the entry; it is accepted but the path is
	// authoritative, so it is not read.

	created, err := ac.aclService.SetACL(c, entry)
	if err != nil {
		ac.respondServiceError(c, "Failed to store ACL entry", err)
		return
	}

	if !created {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteACL revokes a permission: 200 if an entry was removed, 304 if it
// was absent.
func (ac *ACLController) DeleteACL(c *gin.Context) {
	object, subject, ok := ac.pairFromPath(c)
	if !ok {
		return
	}

	permission := c.Param("permission")
	if permission == "" {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid permission", guardian_errors.ErrInvalidACLEntry)
		return
	}

	removed, err := ac.aclService.DeleteACL(c, object, subject, permission)
	if err != nil {
		ac.respondServiceError(c, "Failed to delete ACL entry", err)
		return
	}

	if !removed {
		c.Status(http.StatusNotModified)
		return
	}
	c.Status(http.StatusOK)
}

type searchRequest struct {
	Object  *model.ObjectID  `json:"objectId"`
	Subject *model.SubjectID `json:"subjectId"`
}

// SearchACLs runs a partial-key query over object and/or subject.
func (ac *ACLController) SearchACLs(c *gin.Context) {
	var request searchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid search criteria", err)
		return
	}

	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", guardian_errors.ErrInvalidPagination)
		return
	}

	entries, err := ac.aclService.SearchACLs(c, store.Query{Object: request.Object, Subject: request.Subject}, limit, offset)
	if err != nil {
		ac.respondServiceError(c, "Failed to search ACL entries", err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (ac *ACLController) pairFromPath(c *gin.Context) (model.ObjectID, model.SubjectID, bool) {
	object, err := model.NewObjectID(c.Param("objectType"), c.Param("objectId"))
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid object identity", guardian_errors.ErrInvalidObject)
		return model.ObjectID{}, model.SubjectID{}, false
	}

	subject, err := model.NewSubjectID(model.SubjectType(c.Param("subjectType")), c.Param("subjectId"))
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid subject identity", guardian_errors.ErrInvalidSubject)
		return model.ObjectID{}, model.SubjectID{}, false
	}

	return object, subject, true
}

func (ac *ACLController) respondServiceError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, guardian_errors.ErrInvalidACLEntry):
		util.RespondWithError(c, http.StatusBadRequest, "Invalid ACL entry", err)
	case errors.Is(err, guardian_errors.ErrInvalidPagination):
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
	case errors.Is(err, guardian_errors.ErrDatabaseOperation):
		util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
	default:
		util.RespondWithError(c, http.StatusInternalServerError, message, err)
	}
}
