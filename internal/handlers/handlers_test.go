package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/store/memory"
)

const rosterCSV = "Student,ID,SIS Login ID,Section,group_name\n" +
	"\"Soto, Ana\",1001,asoto@uni.edu,PENSAMIENTO MATEMATICO-[GRUPO B01]-VIRTUAL-[2024-1 BLOQUE 2]-A,G1\n" +
	"\"Núñez, José\",1002,jnunez@uni.edu,PENSAMIENTO MATEMATICO-[GRUPO B01]-VIRTUAL-[2024-1 BLOQUE 2]-A,G2\n"

const rubricJSON = `{
	"nombre": "Proyecto",
	"tipoRubrica": "G",
	"tipoEntrega": "E1",
	"cursosAsociados": ["EPM-B01"],
	"criterios": [
		{"titulo": "Planteamiento", "peso": 100, "puntajeMaximo": 4,
		 "niveles": [{"puntosMin": 0, "puntosMax": 4, "titulo": "Único"}]}
	]
}`

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	config := &app.Config{}
	config.Server.Port = ":0"
	config.API.MaxUploadBytes = 1 << 20
	config.API.SearchLimit = 10
	config.API.InstructorHeader = "X-Semla-Instructor"
	config.API.RequiredHeaders = []app.HeaderConfig{{Name: "X-Client", Value: "semla"}}

	service := app.NewServiceWith(config, memory.NewStore(), &app.Auth{})
	mux := http.NewServeMux()
	New(service).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, contentType, body string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-Client", "semla")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]interface{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	}
	return resp.StatusCode, payload
}

func TestRequiredHeaders(t *testing.T) {
	srv := setupServer(t)
	resp, err := http.Get(srv.URL + "/api/v1/courses")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCourseLifecycle(t *testing.T) {
	srv := setupServer(t)

	status, body := call(t, srv, "POST", "/api/v1/courses?codigo=EPM-B01", "text/csv", rosterCSV)
	require.Equal(t, http.StatusCreated, status)
	course := body["curso"].(map[string]interface{})
	key := course["codigoUnico"].(string)
	assert.Equal(t, "PENSAMIENTO MATEMATICO", course["nombre"])
	assert.Equal(t, "A", course["ingreso"])
	assert.Len(t, course["estudiantes"], 2)

	t.Run("get by code alias", func(t *testing.T) {
		status, body := call(t, srv, "GET", "/api/v1/courses/EPM-B01", "", "")
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, key, body["curso"].(map[string]interface{})["codigoUnico"])
	})

	t.Run("rename", func(t *testing.T) {
		status, body := call(t, srv, "PATCH", "/api/v1/courses/"+key, "application/json", `{"nombre":"Pensamiento"}`)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Pensamiento", body["curso"].(map[string]interface{})["nombre"])
	})

	t.Run("invalid color", func(t *testing.T) {
		status, _ := call(t, srv, "PATCH", "/api/v1/courses/"+key, "application/json", `{"color":"verde"}`)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("search", func(t *testing.T) {
		status, body := call(t, srv, "GET", "/api/v1/search?q=nunez", "", "")
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, body["resultados"], 1)
	})

	t.Run("grade file mismatch", func(t *testing.T) {
		grades := "Student,ID,SIS Login ID,Section,E1,E2,EF\nPoints Possible,,,,10,10,10\n" +
			"\"Soto, Ana\",1001,asoto@uni.edu,EPM,1,2,3\n"
		status, body := call(t, srv, "PUT", "/api/v1/courses/"+key+"/grades", "text/csv", grades)
		require.Equal(t, http.StatusUnprocessableEntity, status)
		v := body["validacion"].(map[string]interface{})
		assert.Equal(t, false, v["esValido"])
		assert.Equal(t, []interface{}{"1002"}, v["faltantes"])
	})

	t.Run("grade file accepted and re-exported", func(t *testing.T) {
		grades := "Student,ID,SIS Login ID,Section,E1,E2,EF\nPoints Possible,,,,10,10,10\n" +
			"\"Soto, Ana\",1001,asoto@uni.edu,EPM,1,2,3\n" +
			"\"Núñez, José\",1002,jnunez@uni.edu,EPM,4,5,6\n"
		status, _ := call(t, srv, "PUT", "/api/v1/courses/"+key+"/grades?archivo=notas.csv", "text/csv", grades)
		require.Equal(t, http.StatusOK, status)

		req, err := http.NewRequest("GET", srv.URL+"/api/v1/courses/"+key+"/grades.csv", nil)
		require.NoError(t, err)
		req.Header.Set("X-Client", "semla")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "notas.csv")
	})

	t.Run("comments", func(t *testing.T) {
		status, _ := call(t, srv, "POST", "/api/v1/courses/"+key+"/comments", "application/json", `{"grupo":"G1","texto":"bien"}`)
		require.Equal(t, http.StatusCreated, status)
		status, body := call(t, srv, "GET", "/api/v1/courses/"+key+"/comments?grupo=G1", "", "")
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, body["comentarios"], 1)
	})

	t.Run("delete", func(t *testing.T) {
		status, _ := call(t, srv, "DELETE", "/api/v1/courses/"+key, "", "")
		require.Equal(t, http.StatusOK, status)
		status, _ = call(t, srv, "GET", "/api/v1/courses/"+key, "", "")
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestCreateCourseErrors(t *testing.T) {
	srv := setupServer(t)

	status, _ := call(t, srv, "POST", "/api/v1/courses", "application/json", `{"nombre":"sin codigo"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, srv, "POST", "/api/v1/courses?codigo=X", "text/csv", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, srv, "POST", "/api/v1/courses", "application/json", `{`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRubricFlow(t *testing.T) {
	srv := setupServer(t)

	status, body := call(t, srv, "POST", "/api/v1/rubrics", "application/json", rubricJSON)
	require.Equal(t, http.StatusCreated, status)
	rubric := body["rubrica"].(map[string]interface{})
	id := rubric["id"].(string)
	assert.Equal(t, "RGE1-EPMV1", rubric["codigo"])
	assert.Equal(t, "nueva", body["decision"].(map[string]interface{})["clasificacion"])

	status, body = call(t, srv, "POST", "/api/v1/rubrics", "application/json", rubricJSON)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "duplicada_identica", body["decision"].(map[string]interface{})["clasificacion"])

	renamed := strings.Replace(rubricJSON, `"Proyecto"`, `"Otro nombre"`, 1)
	status, body = call(t, srv, "POST", "/api/v1/rubrics", "application/json", renamed)
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "duplicada_contenido", body["decision"].(map[string]interface{})["clasificacion"])

	status, body = call(t, srv, "POST", "/api/v1/rubrics/"+id+"/activate", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["rubrica"].(map[string]interface{})["activa"])

	status, body = call(t, srv, "GET", "/api/v1/rubrics?activa=true&tipo=G", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["rubricas"], 1)

	status, _ = call(t, srv, "GET", "/api/v1/rubrics?tipo=Z", "", "")
	assert.Equal(t, http.StatusBadRequest, status)

	t.Run("score against the active rubric", func(t *testing.T) {
		status, body := call(t, srv, "POST", "/api/v1/evaluations", "application/json", `{
			"cursoNombre": "EPM-B01", "entregaId": "E1", "tipo": "G", "targetId": "G1",
			"puntuaciones": [{"criterioIndex": 0, "nivelIndex": 0, "puntos": 9}]
		}`)
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "EPM-B01_E1_G_G1", body["key"])
		assert.Equal(t, 4.0, body["evaluacion"].(map[string]interface{})["puntuacionTotal"])

		status, body = call(t, srv, "GET", "/api/v1/evaluations?curso=EPM-B01", "", "")
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, body["evaluaciones"], 1)

		status, _ = call(t, srv, "DELETE", "/api/v1/evaluations/EPM-B01_E1_G_G1", "", "")
		assert.Equal(t, http.StatusNoContent, status)
		status, _ = call(t, srv, "DELETE", "/api/v1/evaluations/EPM-B01_E1_G_G1", "", "")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("validate", func(t *testing.T) {
		bad := strings.Replace(rubricJSON, `"peso": 100`, `"peso": 90`, 1)
		status, body := call(t, srv, "POST", "/api/v1/rubrics/validate", "application/json", bad)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, false, body["esValido"])
	})

	status, _ = call(t, srv, "DELETE", "/api/v1/rubrics/"+id, "", "")
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = call(t, srv, "GET", "/api/v1/rubrics/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestBackupEndpoints(t *testing.T) {
	srv := setupServer(t)

	status, _ := call(t, srv, "POST", "/api/v1/courses", "application/json", `{"codigo":"EPM-B01","nombre":"Pensamiento"}`)
	require.Equal(t, http.StatusCreated, status)

	status, body := call(t, srv, "GET", "/api/v1/backup", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["cursos"], 1)
	assert.Equal(t, "1.0", body["version"])

	status, _ = call(t, srv, "POST", "/api/v1/backup", "application/json", `{"cursos":{}}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, srv, "POST", "/api/v1/backup", "application/json", `not json`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = call(t, srv, "POST", "/api/v1/backup", "application/json", `{"cursos":{},"evaluaciones":{}}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["restaurado"].(map[string]interface{})["cursos"])

	status, body = call(t, srv, "GET", "/api/v1/courses", "", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["cursos"])
}
