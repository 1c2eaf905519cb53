package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/edusphere/course-api/internal/middleware"
	"github.com/edusphere/course-api/internal/models"
)

// Routes groups every handler the router mounts.
type Routes struct {
	Auth    *AuthHandler
	Modules *ModuleHandler
	Files   *FileHandler
	AuthMW  gin.HandlerFunc
}

// Register mounts the API surface under the given prefix group.
func (r Routes) Register(api *gin.RouterGroup) {
	api.POST("/auth/login", r.Auth.Login)

	api.GET("/files/download", r.Files.Download)

	teaching := api.Group("")
	teaching.Use(r.AuthMW)

	modules := teaching.Group("/modules")
	modules.Use(middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin))
	{
		modules.GET("", r.Modules.List)
		modules.POST("", middleware.RequireRoles(models.RoleAdmin), r.Modules.Create)
		modules.GET("/:id", r.Modules.Get)
		modules.GET("/:id/edit", r.Modules.GetForEdit)

		modules.PUT("/:id/chapters", r.Modules.ReplaceChapters)
		modules.POST("/:id/chapters", r.Modules.AddChapter)
		modules.DELETE("/:id/chapters/:index", r.Modules.DeleteChapter)
		modules.POST("/:id/chapters/:index/files", r.Modules.UploadChapterFiles)
		modules.DELETE("/:id/chapters/:index/files/:fileIndex", r.Modules.DeleteChapterFile)

		modules.PUT("/:id/syllabus", r.Modules.UpdateSyllabus)
		modules.POST("/:id/syllabus/files", r.Modules.UploadSyllabusFiles)
		modules.DELETE("/:id/syllabus/files/:fileIndex", r.Modules.DeleteSyllabusFile)

		modules.POST("/:id/references", r.Modules.AddReference)
		modules.PUT("/:id/references/:index", r.Modules.UpdateReference)
		modules.DELETE("/:id/references/:index", r.Modules.DeleteReference)
		modules.POST("/:id/references/:index/files", r.Modules.UploadReferenceFiles)
		modules.DELETE("/:id/references/:index/files/:fileIndex", r.Modules.DeleteReferenceFile)

		modules.POST("/:id/files/sign", r.Files.Sign)
	}
}
