package config

type GlobalConfig struct {
	GitLabToken               string
	GitLabURL                 string
	GitLabProject             string
	GitHubApiToken            string
	GitHubAppID               int
	GitHubAppInstallationID   int
	GitHubAppPrivateKey       string
	GitHubAppPrivateKeyAsFile bool
	GitHubOwner               string
	GitHubRepo                string
	ExportDir                 string
	LogLevel                  string
}

type TransferConfig struct {
	DryRun         bool // 書き込みを行わずに対象件数のみを算出する
	ForceExport    bool // 既存のスナップショットを無視して再エクスポートする
	SkipValidation bool // 名前不一致などの検証エラーを警告に落として続行する
}
