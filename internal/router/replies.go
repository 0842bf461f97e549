package router

// Fixed replies. Handlers that format dynamic text keep their format
// strings next to the handler.
const (
	ErrorReply  = "Hubo un error procesando tu mensaje. Intenta de nuevo."
	NoTextReply = "No recibí texto. Prueba 'ayuda' o envíame un audio."

	HelpReply = "📖 Comandos:\n" +
		"• idea <texto> → guardo tu idea\n" +
		"• opina: <texto> → la perfecciono y doy siguiente paso\n" +
		"• guárdala → guardo lo último que me dijiste\n" +
		"• listar ideas / resumen → ver últimas ideas\n" +
		"• buscar ideas <palabra> → buscar entre tus ideas\n" +
		"• borrar idea <n> → borrar la idea n de la lista\n" +
		"• clima en <ciudad> / hora en <ciudad>\n" +
		"También puedes mandarme un audio: lo transcribo y actúo."

	GreetingReply = "👋 ¡Hola! Dime tu idea con: `idea ...` o pídeme mejora con: `opina: ...`.\n" +
		"También puedes mandarme un audio y lo transcribo."

	NoNotesReply       = "Aún no tienes ideas registradas."
	EmptyIdeaReply     = "Escribe la idea después de 'idea '. Ej: idea crear app de hábitos."
	EmptyOpinaReply    = "Escribe el contenido después de 'opina:'."
	NothingToSave      = "No tengo nada reciente que guardar. Escribe: idea <texto>"
	NothingToImprove   = "No tengo nada reciente que perfeccionar. Escribe: opina: <texto>"
	EmptySearchReply   = "Dime qué buscar. Ej: buscar ideas app"
	EmptyImageTopic    = "Dime de qué quieres imágenes. Ej: imágenes de la torre Eiffel"
	WeatherUnavailable = "No pude obtener el clima ahora mismo."
	TimeUnavailable    = "No pude obtener la hora de ese lugar ahora mismo."

	shortImprove = "Idea registrada. Siguiente paso: define objetivo y una acción concreta para hoy."
	nextStep     = "Siguiente paso: prioriza, define un resultado medible y agenda un bloque de 25 minutos."

	homeExample   = "Ej: HOME_CITY=Santo Domingo, DO  o  HOME_LAT=18.4861 HOME_LON=-69.9312 HOME_TZ=America/Santo_Domingo"
	NoHomeTime    = "⏰ Para 'mi zona' configura HOME_CITY o HOME_LAT/HOME_LON/HOME_TZ.\n" + homeExample
	NoHomeWeather = "🌦️ Para 'mi zona' configura HOME_CITY o HOME_LAT/HOME_LON/HOME_TZ.\n" + homeExample
)
