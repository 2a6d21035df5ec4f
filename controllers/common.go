package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shdlab/department-api/middleware"
	"github.com/shdlab/department-api/models"
)

func parsePagination(pageStr, sizeStr string) (page, pageSize int) {
	page, pageSize = 1, 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	raw := strings.TrimSpace(ctx.Param(name))
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// callerMayMutate implements the handler-local ownership rule: the manager
// tier always passes, everyone else must own the resource.
func callerMayMutate(ctx *gin.Context, ownerID uint) bool {
	callerID, permission, ok := middleware.CallerIdentity(ctx)
	if !ok {
		return false
	}
	return permission == models.PermissionManager || callerID == ownerID
}
