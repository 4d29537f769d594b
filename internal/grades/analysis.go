package grades

// Options controls an analysis run.
type Options struct {
	// Threshold is the pass mark; zero means PassThreshold.
	Threshold float64
	Policy    TierPolicy
}

// Analysis bundles every value a report needs. It is a pure projection of
// Records and is recomputed whenever the dataset changes.
type Analysis struct {
	Threshold     float64        `json:"threshold"`
	Cohort        CohortSummary  `json:"cohort"`
	Students      []StudentStats `json:"students"`
	Subjects      []SubjectStats `json:"subjects"`
	BestStudents  []StudentStats `json:"best_students"`
	WorstStudents []StudentStats `json:"worst_students"`
	BestSubjects  []SubjectStats `json:"best_subjects"`
	WorstSubjects []SubjectStats `json:"worst_subjects"`
	Ranking       []SubjectStats `json:"ranking"`
	Records       []Record       `json:"records"`
	Matrix        Matrix         `json:"matrix"`
}

// Analyze computes student, subject and cohort statistics for d.
func Analyze(d Dataset, opt Options) (Analysis, error) {
	if d.Len() == 0 {
		return Analysis{}, ErrEmptyBatch
	}
	th := opt.Threshold
	if th == 0 {
		th = PassThreshold
	}
	p := opt.Policy
	if p.Name == "" && len(p.Cutoffs) == 0 {
		p = LenientPolicy
	}
	students := StudentStatsOf(d, th)
	subjects := SubjectStatsOf(d, th)
	cohort, err := Classify(students, p)
	if err != nil {
		return Analysis{}, err
	}
	cohort.GlobalMean = GlobalMean(d)
	return Analysis{
		Threshold:     th,
		Cohort:        cohort,
		Students:      students,
		Subjects:      subjects,
		BestStudents:  BestStudents(students),
		WorstStudents: WorstStudents(students),
		BestSubjects:  BestSubjects(subjects),
		WorstSubjects: WorstSubjects(subjects),
		Ranking:       Ranking(subjects),
		Records:       d.Records,
		Matrix:        ToMatrix(d, students),
	}, nil
}

// GlobalMean is the mean of every non-missing grade in d.
func GlobalMean(d Dataset) Score {
	vals := make([]float64, 0, len(d.Records))
	for _, r := range d.Records {
		if r.Grade.Valid {
			vals = append(vals, r.Grade.Value)
		}
	}
	return meanOf(vals)
}
