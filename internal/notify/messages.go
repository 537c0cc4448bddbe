package notify

import "github.com/dirsoacha/resilience-api/internal/models"

var severityMessages = map[models.Severity]models.PushMessage{
	models.SeverityHigh: {
		Title: "🚨 ALERTA ALTA - Inundación Severa",
		Body:  "Inundación severa reportada. Riesgo inmediato a vida y propiedades. Active protocolos de evacuación.",
	},
	models.SeverityMedium: {
		Title: "⚠️ ALERTA MEDIA - Inundación Local",
		Body:  "Inundación local reportada. Posible daño a infraestructura. Manténgase alerta.",
	},
	models.SeverityLow: {
		Title: "ℹ️ ALERTA BAJA - Monitoreo",
		Body:  "Inconvenientes menores detectados. Seguimiento recomendado.",
	},
}

// MessageFor returns the push copy for a severity. Unknown severities get the medium copy.
func MessageFor(sev models.Severity) models.PushMessage {
	msg, ok := severityMessages[sev]
	if !ok {
		sev = models.SeverityMedium
		msg = severityMessages[sev]
	}
	msg.Severity = sev
	return msg
}
