package internal

import (
	"bitwise74/task-api/internal/service"
	"bitwise74/task-api/internal/store"

	"github.com/chenyahui/gin-cache/persist"
	"gorm.io/gorm"
)

type Deps struct {
	DB           *gorm.DB
	Store        *store.Store
	Sessions     *service.Sessions
	Mailer       service.Mailer
	Avatars      service.AvatarStore
	AvatarPolicy service.AvatarPolicy
	// AvatarCache holds cached avatar responses keyed by request path
	AvatarCache persist.CacheStore
}
