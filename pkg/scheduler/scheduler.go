package scheduler

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/nbflow-io/nbflow/pkg/tutorial"
	"go.uber.org/zap"
)

type TaskInstanceStatus int

func (s TaskInstanceStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case Queued:
		return "queued"
	case Running:
		return "running"
	case Failed:
		return "failed"
	case UpstreamFailed:
		return "upstream_failed"
	case Succeeded:
		return "succeeded"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

func StatusFromString(status string) TaskInstanceStatus {
	switch status {
	case "queued":
		return Queued
	case "running":
		return Running
	case "failed":
		return Failed
	case "upstream_failed":
		return UpstreamFailed
	case "succeeded":
		return Succeeded
	case "skipped":
		return Skipped
	default:
		return Pending
	}
}

type TaskInstanceType int

func (s TaskInstanceType) String() string {
	switch s {
	case TaskInstanceTypeMain:
		return "main"
	case TaskInstanceTypeOutputCheck:
		return "output_check"
	}
	return "unknown"
}

const (
	Pending TaskInstanceStatus = iota
	Queued
	Running
	Failed
	UpstreamFailed
	Succeeded
	Skipped
)

const (
	TaskInstanceTypeMain TaskInstanceType = iota
	TaskInstanceTypeOutputCheck
)

type TaskInstance interface {
	GetCollection() *tutorial.Collection
	GetTutorial() *tutorial.Tutorial
	GetType() TaskInstanceType
	GetHumanID() string
	GetHumanReadableDescription() string

	GetStatus() TaskInstanceStatus
	MarkAs(status TaskInstanceStatus)
	Completed() bool
	Blocking() bool

	GetUpstream() []TaskInstance
	GetDownstream() []TaskInstance
	AddUpstream(t TaskInstance)
	AddDownstream(t TaskInstance)
}

// TutorialInstance is the main execution of a single tutorial notebook.
type TutorialInstance struct {
	ID         string
	HumanID    string
	Collection *tutorial.Collection
	Tutorial   *tutorial.Tutorial

	status     TaskInstanceStatus
	upstream   []TaskInstance
	downstream []TaskInstance
}

func (t *TutorialInstance) GetHumanID() string {
	return t.HumanID
}

func (t *TutorialInstance) GetHumanReadableDescription() string {
	return t.Tutorial.Name
}

func (t *TutorialInstance) GetStatus() TaskInstanceStatus {
	return t.status
}

func (t *TutorialInstance) Completed() bool {
	return t.status == Failed || t.status == Succeeded || t.status == UpstreamFailed || t.status == Skipped
}

func (t *TutorialInstance) Blocking() bool {
	return true
}

func (t *TutorialInstance) MarkAs(status TaskInstanceStatus) {
	t.status = status
}

func (t *TutorialInstance) GetCollection() *tutorial.Collection {
	return t.Collection
}

func (t *TutorialInstance) GetTutorial() *tutorial.Tutorial {
	return t.Tutorial
}

func (t *TutorialInstance) GetType() TaskInstanceType {
	return TaskInstanceTypeMain
}

func (t *TutorialInstance) GetUpstream() []TaskInstance {
	return t.upstream
}

func (t *TutorialInstance) GetDownstream() []TaskInstance {
	return t.downstream
}

func (t *TutorialInstance) AddUpstream(task TaskInstance) {
	t.upstream = append(t.upstream, task)
}

func (t *TutorialInstance) AddDownstream(task TaskInstance) {
	t.downstream = append(t.downstream, task)
}

// OutputCheckInstance validates the executed counterpart of a tutorial after
// the main execution finished.
type OutputCheckInstance struct {
	*TutorialInstance

	parentID string
}

func (t *OutputCheckInstance) GetType() TaskInstanceType {
	return TaskInstanceTypeOutputCheck
}

func (t *OutputCheckInstance) GetHumanReadableDescription() string {
	return t.Tutorial.Name + " - Output Check"
}

func (t *OutputCheckInstance) Blocking() bool {
	return false
}

type TaskExecutionResult struct {
	Instance TaskInstance
	Error    error
}

type InstancesByType map[TaskInstanceType][]TaskInstance

func (i InstancesByType) AddUpstreamByType(instanceType TaskInstanceType, upstream TaskInstance) {
	foundInstances := i[instanceType]
	for _, instance := range foundInstances {
		instance.AddUpstream(upstream)
		upstream.AddDownstream(instance)
	}
}

type Scheduler struct {
	logger           *zap.SugaredLogger
	taskScheduleLock sync.Mutex
	collection       *tutorial.Collection
	runState         *RunState

	taskInstances []TaskInstance
	taskNameMap   map[string]InstancesByType

	WorkQueue chan TaskInstance
	Results   chan *TaskExecutionResult
}

func NewScheduler(logger *zap.SugaredLogger, c *tutorial.Collection, runState *RunState) *Scheduler {
	instances := make([]TaskInstance, 0, len(c.Tutorials)*2)
	for _, t := range c.Tutorials {
		parentID := uuid.New().String()
		instance := &TutorialInstance{
			ID:         parentID,
			HumanID:    t.Name,
			Collection: c,
			Tutorial:   t,
			status:     Pending,
			upstream:   make([]TaskInstance, 0),
			downstream: make([]TaskInstance, 0),
		}
		instances = append(instances, instance)

		instances = append(instances, &OutputCheckInstance{
			TutorialInstance: &TutorialInstance{
				ID:         uuid.New().String(),
				HumanID:    t.Name + ":output-check",
				Collection: c,
				Tutorial:   t,
				status:     Pending,
				upstream:   make([]TaskInstance, 0),
				downstream: make([]TaskInstance, 0),
			},
			parentID: parentID,
		})
	}

	s := &Scheduler{
		logger:           logger,
		collection:       c,
		runState:         runState,
		taskInstances:    instances,
		taskScheduleLock: sync.Mutex{},
		WorkQueue:        make(chan TaskInstance, 100),
		Results:          make(chan *TaskExecutionResult),
	}
	s.initialize()

	return s
}

func (s *Scheduler) initialize() {
	s.constructTaskNameMap()
	s.constructInstanceRelationships()

	for _, t := range s.collection.Tutorials {
		if t.Skip {
			s.MarkTutorial(t, Skipped, false)
		}
	}
}

func (s *Scheduler) constructTaskNameMap() {
	s.taskNameMap = make(map[string]InstancesByType)
	for _, ti := range s.taskInstances {
		name := ti.GetTutorial().Name
		if _, ok := s.taskNameMap[name]; !ok {
			s.taskNameMap[name] = InstancesByType{}
		}

		s.taskNameMap[name][ti.GetType()] = append(s.taskNameMap[name][ti.GetType()], ti)
	}
}

func (s *Scheduler) constructInstanceRelationships() {
	for _, ti := range s.taskInstances {
		if ti.GetType() != TaskInstanceTypeMain {
			continue
		}

		name := ti.GetTutorial().Name

		// the output check runs right after its own main execution
		s.taskNameMap[name].AddUpstreamByType(TaskInstanceTypeOutputCheck, ti)

		for _, dep := range ti.GetTutorial().Requires {
			upstreamInstances, ok := s.taskNameMap[dep]
			if !ok {
				continue
			}

			for _, instances := range upstreamInstances {
				for _, upstream := range instances {
					if !upstream.Blocking() {
						continue
					}

					ti.AddUpstream(upstream)
					upstream.AddDownstream(ti)
				}
			}
		}
	}
}

func (s *Scheduler) InstanceCount() int {
	return len(s.taskInstances)
}

func (s *Scheduler) InstanceCountByStatus(status TaskInstanceStatus) int {
	count := 0
	for _, i := range s.taskInstances {
		if i.GetStatus() == status {
			count++
		}
	}

	return count
}

func (s *Scheduler) MarkAll(status TaskInstanceStatus) {
	for _, instance := range s.taskInstances {
		instance.MarkAs(status)
	}
}

func (s *Scheduler) MarkTutorial(t *tutorial.Tutorial, status TaskInstanceStatus, downstream bool) {
	instancesByType := s.taskNameMap[t.Name]
	for _, instances := range instancesByType {
		for _, i := range instances {
			s.MarkTaskInstance(i, status, downstream)
		}
	}
}

func (s *Scheduler) MarkPendingInstancesByType(instanceType TaskInstanceType, status TaskInstanceStatus) {
	for _, instance := range s.taskInstances {
		if instance.GetStatus() != Pending {
			continue
		}

		if instance.GetType() != instanceType {
			continue
		}

		s.MarkTaskInstance(instance, status, false)
	}
}

func (s *Scheduler) MarkByTag(tag string, status TaskInstanceStatus, downstream bool) {
	for _, instance := range s.taskInstances {
		t := instance.GetTutorial()
		if len(t.Tags) == 0 {
			continue
		}

		if !slices.Contains(t.Tags, tag) {
			continue
		}

		s.MarkTaskInstance(instance, status, downstream)
	}
}

func (s *Scheduler) MarkTaskInstance(instance TaskInstance, status TaskInstanceStatus, downstream bool) {
	instance.MarkAs(status)
	if !downstream {
		return
	}

	for _, d := range instance.GetDownstream() {
		s.MarkTaskInstance(d, status, downstream)
	}
}

func (s *Scheduler) MarkTaskInstanceIfNotSkipped(instance TaskInstance, status TaskInstanceStatus, markDownstream bool) {
	if instance.GetStatus() == Skipped {
		return
	}
	instance.MarkAs(status)
	if !markDownstream {
		return
	}

	for _, d := range instance.GetDownstream() {
		s.MarkTaskInstanceIfNotSkipped(d, status, markDownstream)
	}
}

func (s *Scheduler) markTaskInstanceFailedWithDownstream(instance TaskInstance) {
	s.MarkTaskInstanceIfNotSkipped(instance, UpstreamFailed, true)
	s.MarkTaskInstanceIfNotSkipped(instance, Failed, false)
}

func (s *Scheduler) GetTaskInstancesByStatus(status TaskInstanceStatus) []TaskInstance {
	instances := make([]TaskInstance, 0)
	for _, i := range s.taskInstances {
		if i.GetStatus() != status {
			continue
		}

		instances = append(instances, i)
	}

	return instances
}

// RestoreState marks the instances that already succeeded in a previous run
// so that only the remaining work is scheduled.
func (s *Scheduler) RestoreState(previous *RunState) {
	if previous == nil {
		return
	}

	for _, prior := range previous.State {
		if StatusFromString(prior.Status) != Succeeded {
			continue
		}

		instancesByType := s.taskNameMap[prior.Name]
		for instanceType, instances := range instancesByType {
			if instanceType.String() != prior.Type {
				continue
			}

			for _, instance := range instances {
				instance.MarkAs(Succeeded)
			}
		}
	}
}

func (s *Scheduler) Run(ctx context.Context) []*TaskExecutionResult {
	results := make([]*TaskExecutionResult, 0)
	if len(s.GetTaskInstancesByStatus(Pending)) == 0 {
		s.logger.Debug("no tasks to run, finishing the scheduler loop")
		return nil
	}

	go s.Kickstart()

	s.logger.Debug("started the scheduler loop")
	for {
		select {
		case <-ctx.Done():
			close(s.WorkQueue)
			s.saveState()
			return results
		case result := <-s.Results:
			s.logger.Debug("received task result: ", result.Instance.GetTutorial().Name)
			results = append(results, result)
			finished := s.Tick(result)
			if finished {
				s.logger.Debug("collection has completed, finishing the scheduler loop")
				s.saveState()
				return results
			}
		}
	}
}

func (s *Scheduler) saveState() {
	if s.runState == nil {
		return
	}

	states := make([]*TutorialInstanceState, 0, len(s.taskInstances))
	for _, instance := range s.taskInstances {
		states = append(states, &TutorialInstanceState{
			Name:   instance.GetTutorial().Name,
			Type:   instance.GetType().String(),
			Status: instance.GetStatus().String(),
		})
	}

	s.runState.SetState(states)
	if err := s.runState.Save(); err != nil {
		s.logger.Errorf("failed to save the run state: %v", err)
	}
}

// Tick marks an iteration of the scheduler loop. It is called when a result is received.
// The results are mainly fed from a channel, but Tick allows implementing additional methods of passing
// task results and simulating scheduler loops. It is also useful for testing purposes.
func (s *Scheduler) Tick(result *TaskExecutionResult) bool {
	s.taskScheduleLock.Lock()
	defer s.taskScheduleLock.Unlock()

	if result.Instance.GetStatus() != Skipped {
		s.MarkTaskInstance(result.Instance, Succeeded, false)
	}
	if result.Error != nil {
		s.markTaskInstanceFailedWithDownstream(result.Instance)
	}

	if s.hasCollectionFinished() {
		close(s.WorkQueue)
		return true
	}

	tasks := s.getScheduleableTasks()
	if len(tasks) == 0 {
		return false
	}

	for _, task := range tasks {
		task.MarkAs(Queued)
		s.WorkQueue <- task
	}

	return false
}

// Kickstart initiates the scheduler process by sending a "start" task for the processing.
func (s *Scheduler) Kickstart() {
	s.Tick(&TaskExecutionResult{
		Instance: &TutorialInstance{
			Tutorial: &tutorial.Tutorial{
				Name: "start",
			},
			status: Succeeded,
		},
	})
}

func (s *Scheduler) getScheduleableTasks() []TaskInstance {
	tasks := make([]TaskInstance, 0)
	for _, task := range s.taskInstances {
		if task.GetStatus() != Pending {
			continue
		}

		if !s.allDependenciesSucceededForTask(task) {
			continue
		}

		tasks = append(tasks, task)
	}

	return tasks
}

func (s *Scheduler) allDependenciesSucceededForTask(t TaskInstance) bool {
	if len(t.GetUpstream()) == 0 {
		return true
	}

	for _, upstream := range t.GetUpstream() {
		status := upstream.GetStatus()
		if status == Pending || status == Queued || status == Running {
			return false
		}
	}

	return true
}

func (s *Scheduler) hasCollectionFinished() bool {
	for _, task := range s.taskInstances {
		if !task.Completed() {
			return false
		}
	}

	return true
}
