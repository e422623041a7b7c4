package domain

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Demo data matching the original workspace, so a fresh store is usable
// immediately. Passwords only matter in the local identity variant.

type memberSeed struct {
	Name     string
	Email    string
	Role     MemberRole
	Avatar   string
	Password string
}

type taskSeed struct {
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	DueIn       time.Duration
	Completed   bool
}

var memberSeeds = []memberSeed{
	{Name: "Erhan Avcı", Email: "erhan.avci@thf.org.tr", Role: RoleAdmin, Avatar: "https://i.pravatar.cc/150?u=erhan.avci@thf.org.tr", Password: "password123"},
	{Name: "Berke Özkan", Email: "berke.ozkan@thf.org.tr", Role: RoleMember, Avatar: "https://i.pravatar.cc/150?u=berke.ozkan@thf.org.tr", Password: "password123"},
}

var taskSeeds = []taskSeed{
	{Title: "Yeni açılış sayfası tasarla", Description: "Ana açılış sayfası için modern ve duyarlı bir tasarım oluşturun.", Status: StatusBacklog, Priority: PriorityHigh, DueIn: 5 * 24 * time.Hour},
	{Title: "Kullanıcı doğrulama API'si geliştir", Description: "Giriş, kayıt ve çıkış için JWT tabanlı kimlik doğrulama uç noktalarını uygulayın.", Status: StatusTodo, Priority: PriorityHigh, DueIn: 7 * 24 * time.Hour},
	{Title: "Sürükle-bırak özelliğini uygula", Description: "Kanban panosundaki görev kartları için sürükle ve bırak işlevini etkinleştirin.", Status: StatusInProgress, Priority: PriorityMedium, DueIn: 2 * 24 * time.Hour},
	{Title: "Mobil düzen hatalarını düzelt", Description: "Özellikle gösterge panelindeki küçük ekran boyutlarındaki CSS sorunlarını çözün.", Status: StatusInProgress, Priority: PriorityMedium, DueIn: -24 * time.Hour},
	{Title: "Test ortamını dağıtıma al", Description: "Test sunucusuna otomatik dağıtımlar için CI/CD ardışık düzenini kurun.", Status: StatusDone, Priority: PriorityLow, DueIn: -3 * 24 * time.Hour, Completed: true},
}

// SeedData is the initial content for an empty store.
type SeedData struct {
	Members []Member
	Tasks   []Task
	Config  BoardConfig
}

// NewSeedData builds fresh demo members and tasks. Creator, responsible and
// assignees are drawn randomly from the seeded members, with the responsible
// member always assigned.
func NewSeedData(now time.Time, passwordHasher func(string) (string, error)) (SeedData, error) {
	members := make([]Member, 0, len(memberSeeds))
	for _, ms := range memberSeeds {
		m := Member{
			ID:        uuid.NewString(),
			Name:      ms.Name,
			Email:     ms.Email,
			Role:      ms.Role,
			AvatarURL: ms.Avatar,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if passwordHasher != nil {
			hash, err := passwordHasher(ms.Password)
			if err != nil {
				return SeedData{}, err
			}
			m.PasswordHash = hash
		}
		members = append(members, m)
	}

	tasks := make([]Task, 0, len(taskSeeds))
	for _, ts := range taskSeeds {
		creator := members[rand.Intn(len(members))]
		responsible := members[rand.Intn(len(members))]
		assignees := map[string]struct{}{responsible.ID: {}}
		want := rand.Intn(len(members)) + 1
		for len(assignees) < want {
			assignees[members[rand.Intn(len(members))].ID] = struct{}{}
		}
		ids := make([]string, 0, len(assignees))
		ids = append(ids, responsible.ID)
		for id := range assignees {
			if id != responsible.ID {
				ids = append(ids, id)
			}
		}

		due := now.Add(ts.DueIn)
		t := Task{
			ID:            uuid.NewString(),
			Title:         ts.Title,
			Description:   ts.Description,
			DueDate:       &due,
			Status:        ts.Status,
			Priority:      ts.Priority,
			AssigneeIDs:   ids,
			ResponsibleID: responsible.ID,
			Attachments:   []Attachment{},
			VoiceNotes:    []VoiceNote{},
			Notes:         []Note{},
			CreatedAt:     now,
			UpdatedAt:     now,
			CreatorID:     creator.ID,
		}
		if ts.Completed {
			completed := due
			t.CompletedAt = &completed
		}
		tasks = append(tasks, t)
	}

	return SeedData{Members: members, Tasks: tasks, Config: DefaultBoardConfig()}, nil
}
