package engine

import (
	"math"

	"campus-sim-server/internal/balance"
)

// CourseLoad — вход взвешенного распределения: один курс с его кредитами
// и текущим режимом усилий.
type CourseLoad struct {
	ID      string
	Credits float64
	Mode    int
}

// AllocationResult — итог одного тика учёта ресурсов.
type AllocationResult struct {
	// MasteryDeltas — положительные приросты прогресса; нулевые и
	// отрицательные дельты не применяются.
	MasteryDeltas map[string]float64
	// DrainFactor — кредитно-взвешенное среднее drain-коэффициентов.
	DrainFactor float64
	// EnergyDelta — отрицательная стоимость тика либо небольшое
	// восстановление при полной незанятости.
	EnergyDelta int
	// StressDelta — прирост стресса при перегрузке, иначе 0.
	StressDelta int
}

// ComputeAllocation — алгоритмическое ядро тика: распределяет прирост
// прогресса по курсам и сводит нагрузку в один скаляр drain factor.
//
// Прирост курса = base_growth * growth(mode) * (1 + iq_buff) * f(sanity, stress),
// где iq_buff = (iq-100)/100. Для курсов в режиме 0 прирост всегда ноль.
//
// Итоговая стоимость энергии = ceil(base_drain * drain_factor), но не меньше 1,
// как только drain factor пересёк порог вовлечённости: иначе целочисленное
// усечение тихо классифицировало бы лёгкую нагрузку как полное безделье.
func ComputeAllocation(cfg *balance.Config, courses []CourseLoad, iq, sanity, stress int) AllocationResult {
	res := AllocationResult{MasteryDeltas: make(map[string]float64, len(courses))}
	if len(courses) == 0 {
		res.EnergyDelta = cfg.Tick.IdleEnergyRecovery
		return res
	}

	totalCredits := 0.0
	for _, c := range courses {
		totalCredits += c.Credits
	}
	if totalCredits < 1.0 {
		totalCredits = 1.0
	}

	iqBuff := float64(iq-100) * 0.01
	growthFactor := SanityStressGrowthFactor(cfg.SanityStress.Growth, sanity, stress)

	for _, c := range courses {
		coeffs := cfg.StateCoeffs(c.Mode)
		res.DrainFactor += (c.Credits / totalCredits) * coeffs.Drain

		delta := cfg.Tick.BaseMasteryGrowth * coeffs.Growth * (1 + iqBuff) * growthFactor
		if delta > 0 {
			res.MasteryDeltas[c.ID] = delta
		}
	}

	if res.DrainFactor >= cfg.Tick.EngagedDrainThreshold {
		cost := int(math.Ceil(cfg.Tick.BaseEnergyDrain * res.DrainFactor))
		if cost < 1 {
			cost = 1
		}
		res.EnergyDelta = -cost
	} else {
		res.EnergyDelta = cfg.Tick.PassiveEnergyRecovery
	}

	if res.DrainFactor > cfg.Tick.HighLoadThreshold {
		res.StressDelta = cfg.Tick.HighLoadStressGain
	}

	return res
}

// SanityStressGrowthFactor — мультипликативный модификатор скорости роста.
// Кусочная функция от sanity (штраф ниже 50, бонус выше, нейтраль ровно на 50)
// умножается на кусочную функцию от stress (бонус в оптимальной полосе,
// штраф вне её, больший штраф в экстремальных зонах).
func SanityStressGrowthFactor(m balance.GrowthModifiers, sanity, stress int) float64 {
	var sanityFactor float64
	switch {
	case sanity < m.SanityCritical:
		sanityFactor = m.CriticalFactor
	case sanity < 50:
		sanityFactor = 1.0 - float64(50-sanity)*m.LowSlopePerPoint
		if sanityFactor < m.CriticalFactor {
			sanityFactor = m.CriticalFactor
		}
	case sanity == 50:
		sanityFactor = 1.0
	case sanity >= m.SanityExcellent:
		sanityFactor = m.ExcellentBonus
	default:
		sanityFactor = 1.0 + float64(sanity-50)*m.HighSlopePerPoint
	}

	var stressFactor float64
	switch {
	case stress >= m.StressOptimalMin && stress <= m.StressOptimalMax:
		stressFactor = m.OptimalBonus
	case stress < m.StressExtremeLow || stress > m.StressExtremeHigh:
		stressFactor = m.ExtremePenalty
	default:
		stressFactor = m.OffBandPenalty
	}

	return sanityFactor * stressFactor
}

// SanityStressExamModifier — аддитивный аналог для экзаменационного
// результата: возвращает поправку в баллах, а не множитель.
func SanityStressExamModifier(m balance.ExamModifiers, sanity, stress int) float64 {
	var sanityBonus float64
	switch {
	case sanity < m.SanityCritical:
		sanityBonus = m.CriticalPenalty
	case sanity < 50:
		sanityBonus = -float64(50-sanity) * m.LowSlopePerPoint
		if sanityBonus < m.CriticalPenalty {
			sanityBonus = m.CriticalPenalty
		}
	case sanity == 50:
		sanityBonus = 0
	case sanity >= m.SanityExcellent:
		sanityBonus = m.ExcellentBonus
	default:
		sanityBonus = float64(sanity-50) * m.HighSlopePerPoint
	}

	var stressBonus float64
	switch {
	case stress >= m.StressOptimalMin && stress <= m.StressOptimalMax:
		stressBonus = m.OptimalBonus
	case stress < m.StressExtremeLow || stress > m.StressExtremeHigh:
		stressBonus = m.ExtremePenalty
	default:
		stressBonus = m.OffBandPenalty
	}

	return sanityBonus + stressBonus
}
