package client

// Scene 渲染侧协作者：同步核心只向它推送结果，不读取任何东西
type Scene interface {
	SetLocalColor(color string)
	AddTerrain(inst TerrainInstance)
	SpawnRemote(e RemoteEntity)
	MoveRemote(e RemoteEntity)
	RemoveRemote(identity string)
}

// NopScene 无渲染（无头机器人、测试）
type NopScene struct{}

func (NopScene) SetLocalColor(string) {}
func (NopScene) AddTerrain(TerrainInstance) {}
func (NopScene) SpawnRemote(RemoteEntity) {}
func (NopScene) MoveRemote(RemoteEntity) {}
func (NopScene) RemoveRemote(string) {}
