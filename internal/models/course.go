package models

import "encoding/json"

// CourseInfo — один курс из учебного плана.
type CourseInfo struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Credits float64 `json:"credits"`
}

// UnmarshalJSON принимает id как строку или число — старые планы
// хранили числовые идентификаторы.
func (c *CourseInfo) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      json.RawMessage `json:"id"`
		Name    string          `json:"name"`
		Credits float64         `json:"credits"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Name = raw.Name
	c.Credits = raw.Credits

	if len(raw.ID) > 0 {
		var s string
		if err := json.Unmarshal(raw.ID, &s); err == nil {
			c.ID = s
		} else {
			var n json.Number
			if err := json.Unmarshal(raw.ID, &n); err != nil {
				return err
			}
			c.ID = n.String()
		}
	}
	return nil
}

// CoursePlan — многолетний учебный план специальности.
type CoursePlan struct {
	Major     string         `json:"major,omitempty"`
	Semesters []SemesterPlan `json:"semesters"`
	// Легаси-формат: часть планов использует ключ "plan" вместо "semesters".
	LegacyPlan []SemesterPlan `json:"plan,omitempty"`
}

// SemesterPlan — курсы одного семестра.
type SemesterPlan struct {
	Courses []CourseInfo `json:"courses"`
}

// SemesterList возвращает список семестров независимо от формата плана.
func (p CoursePlan) SemesterList() []SemesterPlan {
	if len(p.Semesters) > 0 {
		return p.Semesters
	}
	return p.LegacyPlan
}

// CoursesForSemester возвращает курсы семестра по 1-based индексу,
// пустой список — если индекс вне плана.
func (p CoursePlan) CoursesForSemester(idx int) []CourseInfo {
	semesters := p.SemesterList()
	if idx < 1 || idx > len(semesters) {
		return nil
	}
	return semesters[idx-1].Courses
}

// ParseCoursePlan разбирает JSON учебного плана; битые данные дают пустой план.
func ParseCoursePlan(raw string) CoursePlan {
	var plan CoursePlan
	if raw == "" {
		return plan
	}
	_ = json.Unmarshal([]byte(raw), &plan)
	return plan
}
