package app

import (
	"context"

	"gorm.io/gorm"

	httpH "github.com/yungbote/workshop-backend/internal/http/handlers"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

type Handlers struct {
	Workshop *httpH.WorkshopHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Workshop: httpH.NewWorkshopHandler(log, services.Workshop),
		Health: httpH.NewHealthHandler(func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}),
	}
}
