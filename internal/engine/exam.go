package engine

import (
	"math"

	"campus-sim-server/internal/balance"
	"campus-sim-server/internal/models"
)

// ExamInput — вход итоговой аттестации.
type ExamInput struct {
	Courses []models.CourseInfo
	Mastery map[string]float64
	Sanity  int
	Stress  int
	Luck    int
}

// ExamResult — результат сессии до применения к состоянию.
type ExamResult struct {
	GPA         float64
	FailedCount int
	Transcript  []models.TranscriptEntry
	SanityDelta int
}

// SettleExam считает итоговую сессию. roll — случайная добавка к удаче,
// равномерная на [-2, 5); инъецируется ради детерминированных тестов.
//
// Балл курса = clamp(mastery*0.9 + exam_modifier(sanity,stress) + luck_bonus + 10, 0, 100),
// где luck_bonus = roll() + (luck-50)/20. GPA — кредитно-взвешенное среднее
// grade point-ов по шкале: >=85 — максимум, >=60 — 1.5 + (балл-60)*0.1,
// ниже порога — 0 и незачёт.
func SettleExam(cfg *balance.Config, in ExamInput, roll func() float64) ExamResult {
	res := ExamResult{}
	examMod := SanityStressExamModifier(cfg.SanityStress.Exam, in.Sanity, in.Stress)

	totalCredits := 0.0
	totalGP := 0.0
	for _, course := range in.Courses {
		mastery := in.Mastery[course.ID]
		luckBonus := roll() + float64(in.Luck-50)/20.0

		score := mastery*0.9 + examMod + luckBonus + 10
		score = math.Max(0, math.Min(100, score))

		var gp float64
		switch {
		case score >= 85:
			gp = cfg.Exam.MaxGradePoint
		case score >= float64(cfg.Exam.FailThreshold):
			gp = 1.5 + (score-60)*0.1
		default:
			gp = 0.0
			res.FailedCount++
		}

		totalCredits += course.Credits
		totalGP += gp * course.Credits
		res.Transcript = append(res.Transcript, models.TranscriptEntry{
			Name:  course.Name,
			Score: math.Round(score*10) / 10,
			GP:    gp,
		})
	}

	if totalCredits > 0 {
		res.GPA = math.Round(totalGP/totalCredits*100) / 100
	}

	if res.FailedCount > 0 {
		res.SanityDelta = cfg.Exam.FailSanityPenaltyPerCourse * res.FailedCount
	} else {
		res.SanityDelta = cfg.Exam.PassAllSanityBonus
	}

	return res
}
