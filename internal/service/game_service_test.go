package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campus-sim-server/internal/interfaces"
	"campus-sim-server/internal/interfaces/mocks"
	"campus-sim-server/internal/models"
	"campus-sim-server/internal/service"
)

func fullStats() models.PlayerStats {
	return models.PlayerStats{
		Username:          "张三",
		Major:             "计算机科学与技术",
		MajorAbbr:         "CS",
		Semester:          "大一秋冬",
		SemesterIdx:       1,
		SemesterStartTime: 1700000000,
		Energy:            100,
		Sanity:            80,
		Stress:            35,
		IQ:                95,
		EQ:                70,
		Luck:              50,
		GPA:               "0.0",
		CourseInfoJSON:    `[{"id":"CS001","name":"程序设计基础","credits":4}]`,
	}
}

func csAssignment() *interfaces.MajorAssignment {
	return &interfaces.MajorAssignment{
		Major: interfaces.MajorInfo{Name: "计算机科学与技术", Abbr: "CS", StressBase: 35, IQBuff: 5},
		CoursePlan: models.CoursePlan{Semesters: []models.SemesterPlan{
			{Courses: []models.CourseInfo{{ID: "CS001", Name: "程序设计基础", Credits: 4}}},
		}},
		CoursePlanJSON: `{"semesters":[{"courses":[{"id":"CS001","name":"程序设计基础","credits":4}]}]}`,
		InitialCourses: []models.CourseInfo{{ID: "CS001", Name: "程序设计基础", Credits: 4}},
	}
}

func newGameService(repo *mocks.PlayerStateRepository, world *mocks.WorldCatalog, saveRepo *mocks.GameSaveRepository) *service.GameService {
	logger := zap.NewNop()
	saves := service.NewSaveService(saveRepo, logger)
	return service.NewGameService("u1", repo, world, saves, logger)
}

func TestSemesterName(t *testing.T) {
	assert.Equal(t, "大一秋冬", service.SemesterName(1))
	assert.Equal(t, "大四春夏", service.SemesterName(8))
	assert.Equal(t, "延毕学期 9", service.SemesterName(9))
	assert.Equal(t, "延毕学期 0", service.SemesterName(0))
}

func TestPrepareGameContext_ExistingState(t *testing.T) {
	repo := new(mocks.PlayerStateRepository)
	world := new(mocks.WorldCatalog)
	saveRepo := new(mocks.GameSaveRepository)
	svc := newGameService(repo, world, saveRepo)

	stats := fullStats()
	repo.On("Exists", mock.Anything).Return(true, nil)
	repo.On("GetStats", mock.Anything).Return(stats, nil)
	repo.On("GetSnapshot", mock.Anything).
		Return(&models.GameStateSnapshot{Stats: stats}, nil)

	snapshot, status, err := svc.PrepareGameContext(context.Background(), "张三", "TIER_1")

	require.NoError(t, err)
	assert.Equal(t, service.StatusExisting, status)
	assert.Equal(t, "张三", snapshot.Stats.Username)
	// Долговременное хранилище не трогается, пока живо состояние в Redis
	saveRepo.AssertNotCalled(t, "GetByUserAndSlot", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "SetStats", mock.Anything, mock.Anything)
}

func TestPrepareGameContext_RehydratesAfterTTLExpiry(t *testing.T) {
	repo := new(mocks.PlayerStateRepository)
	world := new(mocks.WorldCatalog)
	saveRepo := new(mocks.GameSaveRepository)
	svc := newGameService(repo, world, saveRepo)

	stats := fullStats()
	repo.On("Exists", mock.Anything).Return(false, nil)
	saveRepo.On("GetByUserAndSlot", mock.Anything, "u1", models.DefaultSaveSlot).
		Return(&models.GameSave{
			UserID:        "u1",
			SaveSlot:      models.DefaultSaveSlot,
			StatsData:     stats.ToRedis(),
			CoursesData:   map[string]float64{"CS001": 42.5},
			StatesData:    map[string]int{"CS001": models.CourseStatePassive},
			SemesterIndex: 1,
		}, nil)
	repo.On("SetGameData", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)
	repo.On("GetStats", mock.Anything).Return(stats, nil)
	repo.On("GetSnapshot", mock.Anything).
		Return(&models.GameStateSnapshot{Stats: stats, Courses: map[string]float64{"CS001": 42.5}}, nil)

	snapshot, status, err := svc.PrepareGameContext(context.Background(), "张三", "TIER_1")

	require.NoError(t, err)
	assert.Equal(t, service.StatusLoaded, status)
	assert.Equal(t, 42.5, snapshot.Courses["CS001"])
	// Новое прохождение не создавалось
	repo.AssertNotCalled(t, "InitGame", mock.Anything, mock.Anything)
}

func TestPrepareGameContext_NewGame(t *testing.T) {
	repo := new(mocks.PlayerStateRepository)
	world := new(mocks.WorldCatalog)
	saveRepo := new(mocks.GameSaveRepository)
	svc := newGameService(repo, world, saveRepo)

	stats := fullStats()
	repo.On("Exists", mock.Anything).Return(false, nil)
	saveRepo.On("GetByUserAndSlot", mock.Anything, "u1", models.DefaultSaveSlot).
		Return(nil, models.ErrSaveNotFound)
	repo.On("InitGame", mock.Anything, "张三").Return(stats, nil)
	world.On("GetRandomMajorAssignment", mock.Anything, "TIER_1").Return(csAssignment(), nil)
	repo.On("GetStats", mock.Anything).Return(stats, nil)
	repo.On("ApplySemesterCourses", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)
	repo.On("GetSnapshot", mock.Anything).
		Return(&models.GameStateSnapshot{Stats: stats}, nil)

	_, status, err := svc.PrepareGameContext(context.Background(), "张三", "TIER_1")

	require.NoError(t, err)
	assert.Equal(t, service.StatusNew, status)
	repo.AssertCalled(t, "InitGame", mock.Anything, "张三")
}

func TestPrepareGameContext_RepairsMissingCourses(t *testing.T) {
	repo := new(mocks.PlayerStateRepository)
	world := new(mocks.WorldCatalog)
	saveRepo := new(mocks.GameSaveRepository)
	svc := newGameService(repo, world, saveRepo)

	// Состояние живо, но курсы потерялись
	stats := fullStats()
	stats.CourseInfoJSON = "[]"

	repo.On("Exists", mock.Anything).Return(true, nil)
	repo.On("GetStats", mock.Anything).Return(stats, nil)
	world.On("GetRandomMajorAssignment", mock.Anything, "TIER_1").Return(csAssignment(), nil)

	var applied map[string]interface{}
	repo.On("ApplySemesterCourses", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			applied = args.Get(1).(map[string]interface{})
		}).Return(nil)
	repo.On("GetSnapshot", mock.Anything).
		Return(&models.GameStateSnapshot{Stats: stats}, nil)

	_, status, err := svc.PrepareGameContext(context.Background(), "张三", "TIER_1")

	require.NoError(t, err)
	assert.Equal(t, service.StatusRepaired, status)
	require.NotNil(t, applied)
	assert.Equal(t, "计算机科学与技术", applied[models.FieldMajor])
	assert.NotEqual(t, "[]", applied[models.FieldCourseInfoJSON])
}

func TestAssignMajorAndInit_AppliesMajorBonuses(t *testing.T) {
	repo := new(mocks.PlayerStateRepository)
	world := new(mocks.WorldCatalog)
	saveRepo := new(mocks.GameSaveRepository)
	svc := newGameService(repo, world, saveRepo)

	stats := fullStats()
	stats.IQ = 90
	stats.Stress = 0 // Не назначен — берётся база специальности

	world.On("GetRandomMajorAssignment", mock.Anything, "TIER_1").Return(csAssignment(), nil)
	repo.On("GetStats", mock.Anything).Return(stats, nil)

	var applied map[string]interface{}
	var masteryArg map[string]float64
	var statesArg map[string]int
	repo.On("ApplySemesterCourses", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			applied = args.Get(1).(map[string]interface{})
			masteryArg = args.Get(2).(map[string]float64)
			statesArg = args.Get(3).(map[string]int)
		}).Return(nil)

	require.NoError(t, svc.AssignMajorAndInit(context.Background(), "TIER_1"))

	assert.Equal(t, 95, applied[models.FieldIQ]) // 90 + iq_buff 5
	assert.Equal(t, 35, applied[models.FieldStress])
	assert.Equal(t, 0.0, masteryArg["CS001"])
	assert.Equal(t, models.CourseStatePassive, statesArg["CS001"])
}

func TestResetCoursesForNewSemester_EmptySemesterIsVacation(t *testing.T) {
	repo := new(mocks.PlayerStateRepository)
	world := new(mocks.WorldCatalog)
	saveRepo := new(mocks.GameSaveRepository)
	svc := newGameService(repo, world, saveRepo)

	repo.On("GetStats", mock.Anything).Return(fullStats(), nil)
	world.On("GetSemesterCourses", mock.Anything, "CS", 9).Return(nil, nil)

	var applied map[string]interface{}
	repo.On("ApplySemesterCourses", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			applied = args.Get(1).(map[string]interface{})
		}).Return(nil)

	require.NoError(t, svc.ResetCoursesForNewSemester(context.Background(), 9))

	assert.Equal(t, "[]", applied[models.FieldCourseInfoJSON])
	assert.Equal(t, "延毕学期 9", applied[models.FieldSemester])
}
