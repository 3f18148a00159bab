package eventsourced

import (
	"fmt"

	"foodcart/eventing/projection"
)

// ProjectionRegistrar 批量注册投影
//
// 组合根一次性把所有投影挂到管理器上，任意一个失败立即返回，
// 避免半注册状态下启动服务。
type ProjectionRegistrar struct {
	manager *projection.ProjectionManager
}

// NewProjectionRegistrar 创建注册器
func NewProjectionRegistrar(manager *projection.ProjectionManager) *ProjectionRegistrar {
	return &ProjectionRegistrar{manager: manager}
}

// Register 注册投影，nil 项跳过
func (r *ProjectionRegistrar) Register(projections ...projection.IProjection) error {
	if r.manager == nil {
		return fmt.Errorf("projection manager is nil")
	}
	for _, proj := range projections {
		if proj == nil {
			continue
		}
		if err := r.manager.RegisterProjection(proj); err != nil {
			return fmt.Errorf("register projection %s failed: %w", proj.GetName(), err)
		}
	}
	return nil
}
