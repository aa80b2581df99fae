package report

// htmlGapReport is the template contents for the html style gap report.
var htmlGapReport = "" +
	`<!DOCTYPE html>
<html lang="en">

<head>
    <meta charset="utf-8">
    <title>Coverage Gaps</title>
    <style type="text/css">
        .src-snippet {
            margin-top: 2em;
        }

        .src-name {
            font-weight: bold;
        }

        .snippets {
            border-top: 1px solid #bdbdbd;
            border-bottom: 1px solid #bdbdbd;
        }

        a {
            text-decoration: none;
        }
        a:hover {
            text-decoration: underline;
        }
        a:active {
            color: black;
        }
    </style>
</head>

<body>
    <h1>Coverage Gaps</h1>
    {{ if .ComparedBranch }}
        <p>Diff: {{ .ComparedBranch }}...HEAD</p>
    {{ end }}

    <ul>
        <li>
            <b>Format</b>: {{ .SourceFormat }}
        </li>
        <li>
            <b>Overall coverage</b>: {{ printf "%.2f" .OverallPercent }}%
        </li>
        <li>
            <b>Threshold</b>: {{ printf "%.0f" .Threshold }}%
        </li>
        <li>
            <b>Analyzed</b>: {{ NormalizeFiles .TotalFiles }}
        </li>
        <li>
            <b>Below threshold</b>: {{ NormalizeFiles (len .LowCoverageFiles) }}
        </li>
    </ul>

    {{ if .LowCoverageFiles }}
        <table border="1">
            <thead>
                <tr>
                    <th>Source File</th>
                    <th>Coverage (%)</th>
                    <th>Priority</th>
                    <th>Missing Lines</th>
                </tr>
            </thead>
            <tbody>
                {{ range .LowCoverageFiles }}
                <tr>
                    <td><a href="#{{.FileName}}">{{ .FileName }}</a></td>
                    <td>{{ printf "%.2f" .PercentCovered }}</td>
                    <td>{{ .Priority }}</td>
                    <td>{{ IntsJoin .MissingLines }}</td>
                </tr>
                {{ end }}
            </tbody>
        </table>

        {{ range .LowCoverageFiles }}
            <div class="src-snippet">
                <div class="src-name" id="{{.FileName}}">{{ .FileName }}</div>
                <div class="snippets">
                    {{range .CodeSnippet}}
                    {{ . }}
                    {{ end }}
                </div>
            </div>
        {{ end }}
    {{ else }}
        <p>Every analyzed file meets the coverage threshold.</p>
    {{ end }}

    {{ if .GeneratedTests }}
        <h3>Generated Tests</h3>
        <ul>
        {{ range .GeneratedTests }}
            <li>{{ . }}</li>
        {{ end }}
        </ul>
    {{ end }}

    {{ if .ExcludedFiles }}
        <h3>Exclude Patterns</h3>
        <ul>
        {{ range .ExcludedFiles }}
            <li>{{ . }}</li>
        {{ end }}
        </ul>
    {{ end }}

</body>

</html>
`
