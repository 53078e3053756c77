package pipeline

import (
	"fmt"
	"strings"

	"papergen/internal/textgen"
)

const systemPrompt = "Eres un redactor académico de revistas indexadas. Responde solo con el texto pedido, sin subtítulos ni encabezados. Usa estilo impersonal, académico y fluido."

// Generation settings for the analytical stages.
const (
	methodologyTemperature = 0.3
	methodologyMaxTokens   = 1200
	discussionTemperature  = 0.35
	discussionMaxTokens    = 1500
	abstractTemperature    = 0.35
	abstractMaxTokens      = 3500
	recordTemperature      = 0.3
	recordMaxTokens        = 1200
)

// Context sizes of the article excerpts sent to the analytical stages.
const (
	discussionExcerptChars = 8000
	abstractExcerptChars   = 12000
)

func (o *Orchestrator) draft(prompt string) textgen.Request {
	return textgen.Request{
		Prompt:      prompt,
		System:      systemPrompt,
		MaxTokens:   o.cfg.AI.MaxTokens,
		Temperature: o.cfg.AI.Temperature,
	}
}

func analytical(prompt string, temperature float64, maxTokens int) textgen.Request {
	return textgen.Request{Prompt: prompt, Temperature: temperature, MaxTokens: maxTokens}
}

func titlePrompt(topic string) string {
	return fmt.Sprintf("A partir del siguiente input informal: '%s', genera un título académico formal con redacción Scopus. "+
		"Debe combinar un concepto técnico derivado de la profesión y otro del entorno o sector. "+
		"No repitas frases del input, no uses comillas ni fórmulas genéricas como 'un estudio sobre' o 'intersección entre'. "+
		"Devuelve solo el título.", strings.TrimSpace(topic))
}

func variablesPrompt(title string) string {
	return fmt.Sprintf(`Del siguiente título académico: %s, extrae dos conceptos principales: uno técnico desde la profesión y otro contextual desde el entorno o sector involucrado.
Escríbelos en minúsculas, sin comillas ni numeración. Añade la traducción al inglés del primer concepto.

FORMATO DE RESPUESTA EXACTO:
VARIABLE1: [concepto técnico]
VARIABLE2: [concepto contextual]
VARIABLE1_EN: [concepto técnico en inglés]`, title)
}

func contextPrompt(title string) string {
	return fmt.Sprintf("Redacta un párrafo sobre la problemática del artículo titulado '%s', sin datos cuantitativos y sin mencionar el título de la investigación. "+
		"Sigue esta progresión: evidencia general del fenómeno, el elemento que lo hace relevante, su potencial para la práctica y la necesidad de seguir investigando. "+
		"Un solo párrafo de unas 150 palabras.", title)
}

func levelsPrompt(title, country string) string {
	return fmt.Sprintf("Redacta un texto de 3 párrafos, cada uno de 100 palabras, estilo Scopus Q1, sobre la problemática del artículo titulado '%s'. "+
		"El primer párrafo trata el nivel global, el segundo el nivel latinoamericano y el tercero el nivel nacional de %s. "+
		"Cada párrafo debe tener 3 datos cuantitativos (solo uno porcentual) y 2 datos cualitativos de los últimos 5 años. "+
		"No incluyas citas ni menciones a instituciones, ni ambigüedades como 'cerca de' o 'casi'. No uses conectores de cierre. "+
		"Cada párrafo inicia mencionando su nivel (A nivel global, En Latinoamérica, En el contexto de %s). "+
		"Separa los párrafos con un salto de línea y no uses la palabra 'cualitativo' ni similares.", title, country, country)
}

func problemPrompt(title string) string {
	return fmt.Sprintf("Redacta un párrafo de 90 palabras sobre el problema, sus causas y consecuencias en la problemática del artículo titulado '%s', "+
		"estilo Scopus Q1, sin datos cuantitativos, sin citas y con oraciones fluidas. No menciones el título del artículo.", title)
}

func justificationPrompt(title string) string {
	return fmt.Sprintf("Redacta un párrafo de justificación de 100 palabras, estilo Scopus Q1, por relevancia e importancia (no por niveles teórico, práctico o metodológico), "+
		"cuya primera oración sea un preámbulo que contenga \"se justifica\", para el artículo titulado '%s'. No menciones el título del artículo.", title)
}

func theoryPrompt(title string, n int, variables [2]string) string {
	which := "la teoría principal"
	if n == 2 {
		which = "una segunda teoría, complementaria y distinta de la principal,"
	}
	return fmt.Sprintf("A partir de la investigación titulada '%s', sobre %s y %s, identifica %s en la que se podría basar y redacta un párrafo de 150 palabras. "+
		"La primera oración es un preámbulo; desde la segunda menciona el nombre de la teoría, su principal propulsor y de qué trata. "+
		"No menciones el título de la investigación, no uses conectores de cierre, subtítulos ni libros. Escribe con afirmaciones exactas, sin 'podría ser'.",
		title, variables[0], variables[1], which)
}

func conceptPrompt(title, variable string, paragraphs int) string {
	return fmt.Sprintf("A partir de la investigación titulada '%s', redacta %d párrafos de 100 palabras sobre '%s'. "+
		"Cada párrafo comienza con un conector de adición (de manera concordante, en consonancia con lo anterior, siguiendo esa orientación) "+
		"y desarrolla definición, características, tipos o enfoques. Prosa continua, un párrafo por línea, sin subtítulos. "+
		"No uses la palabra 'variable' ni similares, no menciones el título, no hables en primera persona ni uses conectores de cierre.",
		title, paragraphs, variable)
}

func methodologyPrompt(topic, country, level, summary string) string {
	return fmt.Sprintf(`Eres un experto en redacción científica en español. A partir de los datos del estudio y del resumen del flujo PRISMA, debes redactar:

1. La sección 'Metodología' de un artículo científico de revisión bibliográfica.
2. Un texto descriptivo para la 'Figura 1. Diagrama de flujo PRISMA del proceso de selección de artículos'.

DATOS DEL ESTUDIO
- Tipo de trabajo: revisión bibliográfica.
- Tema central: %[1]s.
- País de enfoque principal: %[2]s.
- Nivel de indexación: %[3]s.
- Resumen numérico PRISMA por base de datos:
%[4]s

INSTRUCCIONES PARA LA METODOLOGÍA
- Mencionar que se trata de una revisión bibliográfica de tipo %[3]s.
- Describir brevemente las bases de datos empleadas.
- Indicar el rango temporal aproximado de búsqueda.
- Explicar los criterios de inclusión y exclusión (año, tipo de estudio, temática, idioma y acceso al texto completo).
- Mencionar que se utilizó el diagrama PRISMA para resumir identificación, cribado, exclusión e inclusión.
- Conectar el número total de artículos incluidos con los datos del flujo PRISMA.
- Redacta de 3 a 5 párrafos, en tiempo pasado. No inventes autores ni títulos.

INSTRUCCIONES PARA LA FIGURA PRISMA
- Un párrafo breve que describa el diagrama de flujo PRISMA con los registros identificados, excluidos e incluidos, usando los totales del resumen.

FORMATO DE RESPUESTA EXACTO:

METODOLOGIA:
[texto de la sección metodología]

FIGURA_PRISMA:
[texto descriptivo de la Figura 1]

No agregues ningún otro encabezado ni comentarios fuera de este formato.`, topic, country, level, summaryOrNone(summary))
}

func discussionPrompt(topic, country, level, summary, excerpt string) string {
	return fmt.Sprintf(`Eres un experto en redacción científica en español. A partir de la información del estudio, un fragmento del artículo y el resumen del flujo PRISMA, redacta:

1. La sección 'Discusión' de un artículo de revisión bibliográfica.
2. La sección 'Conclusiones' del mismo artículo.

DATOS DEL ESTUDIO
- Tipo de trabajo: revisión bibliográfica.
- Tema central: %[1]s.
- País de enfoque principal: %[2]s.
- Nivel de indexación: %[3]s.

RESUMEN PRISMA POR BASE DE DATOS
%[4]s

FRAGMENTO DEL ARTÍCULO (para contexto, no lo repitas literal):
"""
%[5]s
"""

INSTRUCCIONES PARA LA DISCUSIÓN
- Entre 4 y 6 párrafos que analicen críticamente los hallazgos de los artículos incluidos.
- Comparar tendencias generales: avances, brechas, limitaciones e implicancias en %[2]s o Latinoamérica.
- No inventar autores ni títulos; habla de "los estudios revisados" o "la literatura consultada".
- Mencionar cómo el número de artículos incluidos condiciona la solidez de las conclusiones.

INSTRUCCIONES PARA LAS CONCLUSIONES
- Entre 2 y 3 párrafos que resuman los aportes de la revisión sobre '%[1]s' en %[2]s.
- Incluir implicancias prácticas o teóricas y recomendaciones para futuras investigaciones.
- No introducir información nueva.

FORMATO DE RESPUESTA EXACTO:

DISCUSION:
[texto de la sección Discusión]

CONCLUSION:
[texto de la sección Conclusiones]

No agregues ningún otro encabezado ni comentarios fuera de este formato.`, topic, country, level, summaryOrNone(summary), excerpt)
}

func abstractPrompt(excerpt string) string {
	return fmt.Sprintf(`Eres un experto en redacción científica.

A partir del TEXTO DEL ARTÍCULO, realiza:

1) Un RESUMEN en español de 150 a 250 palabras que refleje contexto, objetivo, metodología (revisión), hallazgos generales y conclusión, sin inventar datos.
2) Un ABSTRACT en inglés de 150 a 250 palabras, equivalente al resumen.
3) Una versión PULIDA del manuscrito en español que mejore cohesión, precisión y estilo sin cambiar la estructura, sin secciones nuevas y sin datos nuevos.

TEXTO DEL ARTÍCULO:
"""
%s
"""

FORMATO DE RESPUESTA EXACTO:

RESUMEN_ES:
[texto]

RESUMEN_EN:
[texto]

PULIDO:
[texto]`, excerpt)
}

func summaryOrNone(summary string) string {
	if strings.TrimSpace(summary) == "" {
		return "- Sin registros recuperados de las bases de datos."
	}
	return summary
}
