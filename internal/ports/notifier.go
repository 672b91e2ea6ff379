package ports

import (
	"github.com/alejandrodnm/botdash/internal/domain"
)

// Level es la severidad de una notificación transitoria.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Renderer presenta los datos del dashboard al usuario.
// El controller solo lo llama con datos ya filtrados; no decide nada.
type Renderer interface {
	// RenderBots muestra la tabla de bots visibles. total es el tamaño de la
	// colección sin filtrar, para distinguir "sin bots" de "filtro sin match".
	RenderBots(bots []domain.Bot, total int)
	// RenderMetrics muestra los agregados de la colección de bots.
	RenderMetrics(m domain.Metrics)
	// RenderLogs muestra la tabla de logs de decisión visibles.
	RenderLogs(logs []domain.DecisionLog, total int)
	// RenderEmpty muestra el estado vacío de un feed que nunca cargó.
	RenderEmpty(feed string)
	// RenderConnection actualiza el indicador de conexión.
	RenderConnection(s domain.ConnectionSnapshot)
	// SetLoading activa o desactiva el indicador de carga.
	SetLoading(loading bool)
	// Notify muestra un mensaje transitorio.
	Notify(message string, level Level)
}
