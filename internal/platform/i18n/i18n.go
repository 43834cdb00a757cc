// Package i18n holds the static text banks used for fallback explanations,
// audit notes and next-step templates. It is a lookup table, not a
// translation engine: every key is resolved against the requested language
// bank with English as the fallback.
package i18n

import "fmt"

// Language selects a text bank.
type Language string

const (
	English Language = "en"
	Russian Language = "ru"
)

// Parse maps a request parameter to a supported language, defaulting to
// English for anything unrecognized.
func Parse(s string) Language {
	if Language(s) == Russian {
		return Russian
	}
	return English
}

// T returns the template for key in the given language, falling back to
// the English bank, then to the key itself so a missing entry is visible
// rather than silent.
func T(lang Language, key string) string {
	if bank, ok := banks[lang]; ok {
		if s, ok := bank[key]; ok {
			return s
		}
	}
	if s, ok := banks[English][key]; ok {
		return s
	}
	return key
}

// F formats the template for key with fmt verbs.
func F(lang Language, key string, args ...interface{}) string {
	return fmt.Sprintf(T(lang, key), args...)
}

// SpecialistInfo returns the localized description and when-to-consult
// text for a specialist type; zero values for unknown types.
func SpecialistInfo(lang Language, specialistType string) (description, whenToConsult string) {
	if m, ok := specialists[lang]; ok {
		if info, ok := m[specialistType]; ok {
			return info[0], info[1]
		}
	}
	if info, ok := specialists[English][specialistType]; ok {
		return info[0], info[1]
	}
	return "", ""
}

var banks = map[Language]map[string]string{
	English: {
		// Fallback explanations, keyed by status.
		"fallback_normal":   "%s (%g %s) is within the normal range.",
		"fallback_low":      "%s (%g %s) is below the normal range. A consultation with a physician is recommended.",
		"fallback_high":     "%s (%g %s) is above the normal range. A consultation with a physician is recommended.",
		"fallback_elevated": "%s (%g %s) is slightly above the normal range and worth monitoring.",
		"fallback_critical": "%s (%g %s) is critically out of range. Urgent medical attention is recommended.",
		"fallback_unknown":  "%s (%g %s) requires further evaluation.",

		// LLM prompt template.
		"explain_prompt": "Explain in simple, patient-friendly terms what this lab result means: %s = %g %s (reference range %s, status: %s). Answer in 2-3 sentences without medical jargon. Do not diagnose; recommend consulting a doctor where appropriate.",

		// Audit notes.
		"auto_booked_appointment": "Automatically booked urgent appointment %s with %s on %s",
		"booking_attempted":       "Auto-booking attempted: %s",
		"no_doctors_available":    "no available %s doctors found",
		"no_slot_in_horizon":      "no available appointment slots found with %s doctors in the next %d days",
		"earliest_outside_window": "earliest available appointment with %s is on %s; please book manually if acceptable",
		"no_actions_taken":        "No automated actions were taken",
		"critical_alert":          "Critical values detected: %s. Patient flagged for urgent review",
		"booking_reason":          "Urgent consultation required due to critical values: %s",

		// Next steps.
		"step_urgent":          "Schedule urgent consultation with recommended specialists for elevated values",
		"step_liver":           "Consider liver function panel and abdominal ultrasound",
		"step_glucose":         "Monitor blood glucose levels and consider HbA1c testing",
		"step_cardio":          "Evaluate cardiovascular risk factors and consider ECG",
		"step_blood":           "Complete blood count with differential and iron studies may be needed",
		"step_primary":         "Follow up with your primary care physician to discuss these results",
		"step_bring_results":   "Bring all previous lab results to specialist consultations",
		"step_all_normal":      "All laboratory values appear to be within normal ranges",
		"step_regular_checks":  "Continue regular check-ups with your primary care physician",
		"step_healthy_habits":  "Maintain healthy lifestyle habits",
	},
	Russian: {
		"fallback_normal":   "%s (%g %s) находится в пределах нормы.",
		"fallback_low":      "%s (%g %s) ниже нормы. Рекомендуется консультация врача.",
		"fallback_high":     "%s (%g %s) выше нормы. Рекомендуется консультация врача.",
		"fallback_elevated": "%s (%g %s) немного выше нормы, рекомендуется наблюдение.",
		"fallback_critical": "%s (%g %s) критически выходит за пределы нормы. Рекомендуется срочная консультация врача.",
		"fallback_unknown":  "%s (%g %s) требует дополнительного анализа.",

		"explain_prompt": "Объясни простым языком, что означает этот результат анализа: %s = %g %s (референсный диапазон %s, статус: %s). Ответь в 2-3 предложениях без медицинского жаргона. Не ставь диагноз; при необходимости порекомендуй обратиться к врачу.",

		"auto_booked_appointment": "Автоматически записан срочный приём %s к %s на %s",
		"booking_attempted":       "Попытка автоматической записи: %s",
		"no_doctors_available":    "нет доступных врачей специальности %s",
		"no_slot_in_horizon":      "нет свободного времени у врачей специальности %s в ближайшие %d дней",
		"earliest_outside_window": "ближайший доступный приём у %s — %s; при необходимости запишитесь вручную",
		"no_actions_taken":        "Автоматические действия не выполнялись",
		"critical_alert":          "Обнаружены критические показатели: %s. Требуется срочный осмотр",
		"booking_reason":          "Требуется срочная консультация из-за критических показателей: %s",

		"step_urgent":          "Запишитесь на срочную консультацию к рекомендованным специалистам",
		"step_liver":           "Рассмотрите печёночную панель и УЗИ брюшной полости",
		"step_glucose":         "Контролируйте уровень глюкозы и рассмотрите анализ HbA1c",
		"step_cardio":          "Оцените сердечно-сосудистые риски и рассмотрите ЭКГ",
		"step_blood":           "Может потребоваться развёрнутый анализ крови и исследование железа",
		"step_primary":         "Обсудите результаты с вашим терапевтом",
		"step_bring_results":   "Возьмите предыдущие результаты анализов на консультацию",
		"step_all_normal":      "Все лабораторные показатели в пределах нормы",
		"step_regular_checks":  "Продолжайте регулярные осмотры у терапевта",
		"step_healthy_habits":  "Поддерживайте здоровый образ жизни",
	},
}

// specialists maps specialist type to {description, when to consult}.
var specialists = map[Language]map[string][2]string{
	English: {
		"Gastroenterologist": {
			"Specialist in digestive system and liver disorders",
			"For liver enzyme abnormalities, digestive issues, or abdominal symptoms",
		},
		"Endocrinologist": {
			"Specialist in hormones, metabolism, and endocrine disorders",
			"For diabetes, thyroid disorders, or metabolic abnormalities",
		},
		"Cardiologist": {
			"Specialist in heart and cardiovascular system",
			"For cholesterol abnormalities or cardiovascular risk factors",
		},
		"Nephrologist": {
			"Specialist in kidney diseases and disorders",
			"For kidney function abnormalities or suspected kidney disease",
		},
		"Hematologist": {
			"Specialist in blood disorders and diseases",
			"For blood count abnormalities or bleeding/clotting disorders",
		},
		"Internal Medicine": {
			"General internal medicine physician",
			"For overall health assessment and coordination of care",
		},
	},
	Russian: {
		"Gastroenterologist": {
			"Специалист по заболеваниям пищеварительной системы и печени",
			"При отклонениях печёночных ферментов или жалобах со стороны ЖКТ",
		},
		"Endocrinologist": {
			"Специалист по гормонам, обмену веществ и эндокринным заболеваниям",
			"При диабете, заболеваниях щитовидной железы или метаболических нарушениях",
		},
		"Cardiologist": {
			"Специалист по сердцу и сосудистой системе",
			"При отклонениях холестерина или сердечно-сосудистых рисках",
		},
		"Nephrologist": {
			"Специалист по заболеваниям почек",
			"При отклонениях почечных показателей",
		},
		"Hematologist": {
			"Специалист по заболеваниям крови",
			"При отклонениях показателей крови или нарушениях свёртываемости",
		},
		"Internal Medicine": {
			"Врач общей практики",
			"Для общей оценки состояния здоровья и координации лечения",
		},
	},
}
