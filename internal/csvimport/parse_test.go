package csvimport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rosterCSV = `Student,ID,SIS Login ID,Section
"Perez Gomez, Ana Maria",101,ana@uni.edu,"PENSAMIENTO MATEMÁTICO-[GRUPO B01]-VIRTUAL-[2024-1 BLOQUE 2]-A"
Points Possible,,,
"Rojas, Luis",102,luis@uni.edu,"PENSAMIENTO MATEMÁTICO-[GRUPO B01]-VIRTUAL-[2024-1 BLOQUE 2]-A"
,,,
`

func TestParseRoster(t *testing.T) {
	res, err := Parse(rosterCSV, KindRoster)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	ana := res.Records[0].Student
	assert.Equal(t, "Perez Gomez", ana.Surname)
	assert.Equal(t, "Ana Maria", ana.GivenName)
	assert.Equal(t, "101", ana.CanvasUserID)
	assert.Equal(t, "ana@uni.edu", ana.Email)
	assert.Nil(t, res.Records[0].Scores)

	assert.Equal(t, "Rojas", res.Records[1].Student.Surname)

	assert.Equal(t, Section{
		CourseName: "PENSAMIENTO MATEMÁTICO",
		Group:      "B01",
		Modality:   "VIRTUAL",
		Block:      "2024-1 BLOQUE 2",
		Intake:     "A",
	}, res.Section)
	assert.Equal(t, 2, res.Dropped)
}

func TestParseHeaderSynonyms(t *testing.T) {
	text := "nombre,canvas_user_id,login_id,secciones,group_name,group_id\n" +
		"Solo Apellido,7,x@y.z,S1,Grupo 03,g-55\n"

	res, err := Parse(text, KindRoster)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	s := res.Records[0].Student
	assert.Equal(t, "Solo Apellido", s.Surname)
	assert.Empty(t, s.GivenName)
	assert.Equal(t, "7", s.CanvasUserID)
	assert.Equal(t, "x@y.z", s.Email)
	assert.Equal(t, "03", s.Group)
	assert.Equal(t, "g-55", s.CanvasGroupID)
}

func TestParseMissingColumnsAreEmpty(t *testing.T) {
	res, err := Parse("Student\n\"Diaz, Eva\"\n", KindRoster)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Empty(t, res.Records[0].Student.Email)
	assert.Empty(t, res.Records[0].Student.CanvasUserID)
	assert.Empty(t, res.Records[0].Student.Group)
}

func TestParseDropsMetadataRows(t *testing.T) {
	testCases := []struct {
		name string
		row  string
	}{
		{"points possible", `Points Possible,1,2,3,4,5`},
		{"points possible any case", `   POINTS POSSIBLE,x,y,z,w,v`},
		{"manual posting", `,,,,,Manual Posting`},
		{"noise row without name or email", `,999,not-an-email,,,`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			text := "Student,ID,SIS Login ID,Section,Group Name,Notas\n" + tc.row + "\n"
			res, err := Parse(text, KindRoster)
			require.NoError(t, err)
			assert.Empty(t, res.Records)
			assert.Equal(t, 1, res.Dropped)
		})
	}
}

func TestParseKeepsEmailOnlyRows(t *testing.T) {
	res, err := Parse("Student,SIS Login ID\n,solo@uni.edu\n", KindRoster)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "solo@uni.edu", res.Records[0].Student.Email)
}

func TestParseGradeDeliveries(t *testing.T) {
	text := "Student,ID,SIS Login ID,Section,Entrega 1 (101),Proyecto final,Sustentación (9),Entrega Current Points,Final Score,Unposted Final Score\n" +
		"Points Possible,,,,100,100,100,,,\n" +
		"\"Rojas, Luis\",102,luis@uni.edu,S,80,90.5,abc,5,6,7\n"

	res, err := Parse(text, KindGrades)
	require.NoError(t, err)
	assert.Equal(t, []string{"Entrega 1 (101)", "Proyecto final", "Sustentación (9)"}, res.Deliveries)
	require.Len(t, res.Records, 1)
	assert.Equal(t, map[string]float64{
		"Entrega 1 (101)":  80,
		"Proyecto final":   90.5,
		"Sustentación (9)": 0,
	}, res.Records[0].Scores)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("   \n  ", KindRoster)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = Parse("Student,ID\n", KindRoster)
	assert.True(t, errors.Is(err, ErrTooFewLines))
}

func TestIsDeliveryHeader(t *testing.T) {
	assert.True(t, IsDeliveryHeader("ESCENARIO 5"))
	assert.True(t, IsDeliveryHeader("Sustentacion"))
	assert.False(t, IsDeliveryHeader("Entregas Current Points"))
	assert.False(t, IsDeliveryHeader("Unposted Current Score"))
	assert.False(t, IsDeliveryHeader("Quiz 1"))
}

func TestParseSection(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected Section
	}{
		{
			name: "strict",
			raw:  "ESTADISTICA-[GRUPO B02]-PRESENCIAL-[2024-2 BLOQUE 1]-C",
			expected: Section{
				CourseName: "ESTADISTICA", Group: "B02", Modality: "PRESENCIAL", Block: "2024-2 BLOQUE 1", Intake: "C",
			},
		},
		{
			name: "strict rejects unknown intake",
			raw:  "ESTADISTICA-[GRUPO B02]-PRESENCIAL-[2024-2 BLOQUE 1]-D",
			expected: Section{
				CourseName: "ESTADISTICA", Group: "B02", Modality: "PRESENCIAL", Block: "2024-2 BLOQUE 1",
			},
		},
		{
			name: "fallback pieces",
			raw:  "CALCULO I [GRUPO 7] híbrido BLOQUE 3-e",
			expected: Section{
				CourseName: "CALCULO I", Group: "7", Modality: "HIBRIDO", Block: "BLOQUE 3", Intake: "E",
			},
		},
		{
			name:     "empty",
			raw:      "  ",
			expected: Section{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseSection(tc.raw))
		})
	}
}

func TestParseFinalGrades(t *testing.T) {
	text := "Student,ID,SIS User ID,Section,E1,E2,EF\n" +
		"anything at all,,,\n" +
		"\"Perez, Ana\",101,ana,S,4.5,3.2,5\n" +
		"short,row\n" +
		"\"Rojas, Luis\",102,luis,S,x,,2.75\n"

	rows, err := ParseFinalGrades(text)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "101", rows[0].ExternalID)
	assert.Equal(t, [3]float64{4.5, 3.2, 5}, rows[0].Scores)
	assert.Equal(t, "102", rows[1].ExternalID)
	assert.Equal(t, [3]float64{0, 0, 2.75}, rows[1].Scores)
}

func TestParseFinalGradesShortAndEmpty(t *testing.T) {
	rows, err := ParseFinalGrades("Student,ID\nPoints Possible\n")
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = ParseFinalGrades("\n\t ")
	assert.ErrorIs(t, err, ErrEmptyFile)
}
